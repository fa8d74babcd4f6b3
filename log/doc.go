// Package log provides a simplified logging interface based on
// [log/slog].
//
// Loggers are configured at creation time using functional options:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatText))
//
// The zero [Logger] discards everything, so library code can hold one
// without checking whether logging was configured.
//
// Each level has a context-aware and a context-unaware method. The
// context-unaware variants use [DefaultContextProvider].
package log
