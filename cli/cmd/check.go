package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Check reports the diagnostics of C source files without writing output.
type Check struct {
	Quiet bool `help:"Do not print a summary line." short:"q"`

	Sources []string `arg:"" default:"-" help:"Source input files or '-' for default stdin." name:"source"`
}

// Run executes the check command.
func (c *Check) Run(ctx context.Context, fe *Frontend) error {
	trace(ctx, slog.Any("sources", c.Sources))

	var (
		errs   []error
		failed int
	)

	for _, src := range c.Sources {
		tu, err := fe.parse(ctx, src)
		if err != nil {
			failed++

			errs = append(errs, err)

			continue
		}

		// Lowering refusals are reported too, without output.
		if err := fe.lower(ctx, tu, io.Discard); err != nil {
			failed++

			errs = append(errs, err)
		}
	}

	if !c.Quiet {
		fmt.Fprintf(streamsFrom(ctx).Err, "%d of %d files checked without errors\n",
			len(c.Sources)-failed, len(c.Sources))
	}

	if len(errs) > 0 {
		return ErrDiagnostics.Wrap(errors.Join(errs...)).
			With(slog.Int("failed", failed))
	}

	return nil
}
