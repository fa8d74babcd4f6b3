package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"
)

// Symbols lists the functions synthesized for a C source file.
type Symbols struct {
	Format string `default:"text" enum:"text,json,yaml" help:"Output format." short:"f"`

	Source string `arg:"" default:"-" help:"Source input file or '-' for default stdin." name:"source"`
}

// Run executes the symbols command.
func (s *Symbols) Run(ctx context.Context, fe *Frontend) error {
	trace(ctx, slog.String("source", s.Source), slog.String("format", s.Format))

	tu, err := fe.parse(ctx, s.Source)
	if err != nil {
		return err
	}

	syms := tu.Symbols()

	var out []byte

	switch s.Format {
	case "json":
		out, err = json.MarshalIndent(syms, "", "  ")
		if err != nil {
			return ErrJSONMarshal.Wrap(err)
		}

		out = append(out, '\n')

	case "yaml":
		out, err = yaml.Marshal(syms)
		if err != nil {
			return ErrYAMLMarshal.Wrap(err)
		}

	default:
		var sb strings.Builder

		for _, sym := range syms {
			fmt.Fprintf(&sb, "%s\t%s", sym.Pos, sym.Signature)

			if sym.Parent != "" {
				fmt.Fprintf(&sb, "\tin %s", sym.Parent)
			}

			if len(sym.Deps) > 0 {
				fmt.Fprintf(&sb, "\tneeds %s", strings.Join(sym.Deps, ", "))
			}

			sb.WriteByte('\n')
		}

		out = []byte(sb.String())
	}

	return writeOutput(ctx, stdinSource, out)
}
