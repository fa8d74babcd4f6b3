// Package cli contains the command line interface of lfc.
//
// # Usage
//
//	lfc [flags] <command> [args]
//
// The default command is lower, which writes the translation of a C file
// with every unnamed function expression replaced by a static function:
//
//	lfc -I include -D NDEBUG x.c > x.lowered.c
//	lfc build -o x.o x.c
//	lfc check src/*.c
//	lfc symbols --format yaml x.c
//
// # Front end options
//
//   - -I, --include: add a directory to the include search path
//   - -D, --define: predefine a macro (NAME or NAME=VALUE)
//   - --prefix: prefix of synthesized function names
//   - --[no-]line: emit #line directives around hoisted functions
//   - --color: colorize diagnostics (auto, always, never)
//
// # Configuration
//
// Flags can also be set in a YAML file. The file in the user
// configuration directory (e.g. ~/.config/lfc/config.yaml) is read when
// present, and --config names another one. Keys are flag names, with
// either hyphens or underscores:
//
//	log_level: debug
//	include:
//	  - /opt/include
//	line: false
//
// Command-line flags override configuration values.
//
// # Logging Options
//
//   - --log-level: minimum log level (debug, info, warn, error)
//   - --log-format: log output format (text, json)
//   - --log-time-layout: timestamp format (RFC3339, kitchen, none, ...)
//   - --log-caller: include caller information
//   - --log-pretty: colorized text output
//
// # Profiling Options
//
//   - --pprof-mode: enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: profile output directory (default: ~/.cache/lfc/pprof)
package cli
