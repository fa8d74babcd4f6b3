package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/thradams/local-functions/cc"
	"github.com/thradams/local-functions/log"
)

// ContextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

type streamsKey struct{}

// Streams are the standard streams a command reads and writes.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// WithStreams returns a new context.Context whose commands use s instead
// of the process's standard streams. Nil members keep their default.
func WithStreams(ctx context.Context, s Streams) context.Context {
	return context.WithValue(ctx, streamsKey{}, s)
}

func streamsFrom(ctx context.Context) Streams {
	s, _ := ctx.Value(streamsKey{}).(Streams)

	if s.In == nil {
		s.In = os.Stdin
	}

	if s.Out == nil {
		s.Out = os.Stdout
	}

	if s.Err == nil {
		s.Err = os.Stderr
	}

	return s
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// Frontend holds the options shared by every command that parses C.
type Frontend struct {
	Include []string `help:"Add a directory to the include search path." placeholder:"DIR"          sep:"none" short:"I" type:"path"`
	Define  []string `help:"Predefine a macro, as NAME or NAME=VALUE."  placeholder:"NAME[=VALUE]" sep:"none" short:"D"`
	Prefix  string   `default:"${prefix}"                               help:"Prefix of synthesized function names."`
	Line    bool     `default:"true"                                    help:"Emit #line markers in lowered output." negatable:""`
	Color   string   `default:"auto"                                    enum:"auto,always,never"                      help:"Colorize diagnostics."`
}

// options translates f into front-end options.
func (f *Frontend) options() []cc.Option {
	opts := []cc.Option{
		cc.WithLogger(log.Default()),
		cc.WithIncludePaths(f.Include...),
		cc.WithLineMarkers(f.Line),
	}

	if f.Prefix != "" {
		opts = append(opts, cc.WithPrefix(f.Prefix))
	}

	for _, def := range f.Define {
		name, value, ok := strings.Cut(def, "=")
		if !ok {
			value = "1"
		}

		opts = append(opts, cc.WithDefine(name, value))
	}

	return opts
}

// useColor reports whether diagnostics written to w are colorized.
func (f *Frontend) useColor(w io.Writer) bool {
	switch f.Color {
	case "always":
		return true
	case "never":
		return false
	}

	if color.NoColor {
		return false
	}

	file, ok := w.(*os.File)
	if !ok {
		return false
	}

	fd := file.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// parse parses source, or the standard input if source is "-", and writes
// its diagnostics to the error stream. It returns ErrDiagnostics if the
// unit has errors.
func (f *Frontend) parse(ctx context.Context, source string) (*cc.TranslationUnit, error) {
	streams := streamsFrom(ctx)

	var (
		tu  *cc.TranslationUnit
		err error
	)

	if source == stdinSource {
		var contents []byte

		contents, err = io.ReadAll(streams.In)
		if err != nil {
			return nil, cc.ErrReadInput.Wrap(err).With(slog.String("path", source))
		}

		tu, err = cc.ParseSource(ctx, "<stdin>", contents, f.options()...)
	} else {
		tu, err = cc.ParseFile(ctx, source, f.options()...)
	}

	colorize := f.useColor(streams.Err)

	if err != nil {
		var d *cc.Diagnostic
		if errors.As(err, &d) {
			if ferr := d.Format(streams.Err, colorize); ferr != nil {
				return nil, ferr
			}

			return nil, ErrDiagnostics.Wrap(err).With(slog.String("source", source))
		}

		return nil, err
	}

	if err := tu.Diagnostics.Format(streams.Err, colorize); err != nil {
		return nil, err
	}

	if err := tu.Err(); err != nil {
		return tu, ErrDiagnostics.Wrap(err).
			With(slog.String("source", source), slog.Int("count", countErrors(tu)))
	}

	return tu, nil
}

func countErrors(tu *cc.TranslationUnit) int {
	n := 0

	for _, d := range tu.Diagnostics {
		if d.Severity == cc.SeverityError {
			n++
		}
	}

	return n
}

// lower writes the lowered translation of tu to w. Diagnostics raised
// while lowering are written to the error stream.
func (f *Frontend) lower(ctx context.Context, tu *cc.TranslationUnit, w io.Writer) error {
	err := tu.Lower(w)
	if err == nil {
		return nil
	}

	var diags cc.DiagnosticList
	if errors.As(err, &diags) {
		stderr := streamsFrom(ctx).Err
		if ferr := diags.Format(stderr, f.useColor(stderr)); ferr != nil {
			return ferr
		}

		return ErrDiagnostics.Wrap(err)
	}

	return err
}
