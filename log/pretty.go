package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"
)

var (
	colorKey   = color.New(color.FgHiBlack)
	colorValue = color.New(color.FgCyan)
	colorNum   = color.New(color.FgYellow)
	colorDebug = color.New(color.FgBlue)
	colorInfo  = color.New(color.FgGreen)
	colorWarn  = color.New(color.FgYellow)
	colorError = color.New(color.FgRed, color.Bold)
)

// prettyTextHandler implements a colorized text handler for log messages.
type prettyTextHandler struct {
	opts       slog.HandlerOptions
	formatTime FormatTime
	mu         *sync.Mutex
	w          io.Writer
	attrs      []slog.Attr
}

func newPrettyTextHandler(w io.Writer, opts *slog.HandlerOptions, formatTime FormatTime) *prettyTextHandler {
	return &prettyTextHandler{
		opts:       *opts,
		formatTime: formatTime,
		mu:         &sync.Mutex{},
		w:          w,
	}
}

func (h *prettyTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)

	if !r.Time.IsZero() {
		if ts := h.formatTime(r.Time); ts != "" {
			buf.WriteString(colorKey.Sprint(ts))
			buf.WriteByte(' ')
		}
	}

	buf.WriteString(levelColor(r.Level).Sprintf("%-5s", r.Level.String()))
	buf.WriteByte(' ')

	if h.opts.AddSource {
		if src := r.Source(); src != nil {
			buf.WriteString(colorKey.Sprintf("%s:%d ", src.File, src.Line))
		}
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		h.writeAttr(buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(buf, a)

		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

func (h *prettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyTextHandler{
		opts:       h.opts,
		formatTime: h.formatTime,
		mu:         h.mu,
		w:          h.w,
		attrs:      append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
	}
}

func (h *prettyTextHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *prettyTextHandler) writeAttr(buf *bytes.Buffer, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	buf.WriteByte(' ')
	buf.WriteString(colorKey.Sprint(a.Key + "="))

	switch a.Value.Kind() {
	case slog.KindInt64, slog.KindUint64, slog.KindFloat64, slog.KindBool:
		buf.WriteString(colorNum.Sprint(a.Value.String()))
	case slog.KindGroup:
		buf.WriteByte('{')
		for i, g := range a.Value.Group() {
			if i > 0 {
				buf.WriteByte(' ')
			}
			fmt.Fprintf(buf, "%s=%s", g.Key, g.Value.Resolve())
		}
		buf.WriteByte('}')
	default:
		buf.WriteString(colorValue.Sprint(a.Value.String()))
	}
}

func levelColor(level slog.Level) *color.Color {
	switch {
	case level >= slog.LevelError:
		return colorError
	case level >= slog.LevelWarn:
		return colorWarn
	case level >= slog.LevelInfo:
		return colorInfo
	default:
		return colorDebug
	}
}
