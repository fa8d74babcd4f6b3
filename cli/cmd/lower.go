package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"os"

	"github.com/thradams/local-functions/log"
)

// Lower writes the lowered translation of a C source file.
type Lower struct {
	Output string `default:"-" help:"Output file or '-' for stdout." placeholder:"FILE" short:"o" type:"path"`

	Source string `arg:"" default:"-" help:"Source input file or '-' for default stdin." name:"source"`
}

// Run executes the lower command.
func (l *Lower) Run(ctx context.Context, fe *Frontend) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	trace(ctx, slog.String("source", l.Source), slog.String("output", l.Output))

	tu, err := fe.parse(ctx, l.Source)
	if err != nil {
		return err
	}

	// Nothing is written unless the whole unit lowers.
	var buf bytes.Buffer
	if err := fe.lower(ctx, tu, &buf); err != nil {
		return err
	}

	return writeOutput(ctx, l.Output, buf.Bytes())
}

// writeOutput writes data to path, or to the output stream if path is "-".
func writeOutput(ctx context.Context, path string, data []byte) error {
	if path == stdinSource || path == "" {
		if _, err := streamsFrom(ctx).Out.Write(data); err != nil {
			return ErrWriteOutput.Wrap(err)
		}

		return nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ErrWriteOutput.Wrap(err).With(slog.String("path", path))
	}

	return nil
}

// trace logs the running command with attrs.
func trace(ctx context.Context, attrs ...slog.Attr) {
	name := "lfc"
	if ktx := kongContextFrom(ctx); ktx != nil {
		name = ktx.Command()
	}

	log.DebugContext(ctx, "run "+name, attrs...)
}
