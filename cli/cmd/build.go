package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Build lowers a C source file and compiles the result with the system
// C compiler.
type Build struct {
	CC       string   `default:"cc" env:"CC"                                  help:"C compiler command."           name:"cc"`
	CFlag    []string `help:"Pass an extra flag to the C compiler."            name:"cflag"                         placeholder:"FLAG"`
	Assemble bool     `help:"Stop after compilation proper and write assembly." short:"S"`
	Output   string   `help:"Output file (default: SOURCE with .o or .s)."     placeholder:"FILE"                   short:"o" type:"path"`
	DryRun   bool     `help:"Print the compiler command instead of running it." name:"dry-run"`

	Source string `arg:"" help:"Source input file or '-' for default stdin." name:"source"`
}

// Run executes the build command.
func (b *Build) Run(ctx context.Context, fe *Frontend) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	trace(ctx, slog.String("source", b.Source), slog.String("cc", b.CC))

	tu, err := fe.parse(ctx, b.Source)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "lfc-*")
	if err != nil {
		return ErrWriteOutput.Wrap(err)
	}
	defer os.RemoveAll(dir)

	lowered := filepath.Join(dir, b.baseName()+".c")

	file, err := os.Create(lowered)
	if err != nil {
		return ErrWriteOutput.Wrap(err).With(slog.String("path", lowered))
	}

	err = fe.lower(ctx, tu, file)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = ErrWriteOutput.Wrap(cerr).With(slog.String("path", lowered))
	}

	if err != nil {
		return err
	}

	args := b.command(fe, lowered)
	streams := streamsFrom(ctx)

	if b.DryRun {
		_, err := fmt.Fprintln(streams.Out, shellJoin(args))

		return err
	}

	compile := exec.CommandContext(ctx, args[0], args[1:]...)
	compile.Stdout = streams.Out
	compile.Stderr = streams.Err

	if err := compile.Run(); err != nil {
		return ErrCompiler.Wrap(err).With(slog.String("command", shellJoin(args)))
	}

	return nil
}

// baseName is the name of the source file without directory or extension.
func (b *Build) baseName() string {
	if b.Source == stdinSource {
		return "stdin"
	}

	base := filepath.Base(b.Source)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

// command returns the compiler invocation for the lowered file. The
// directory of the source stays on the include path, since the lowered
// file is compiled from elsewhere.
func (b *Build) command(fe *Frontend, lowered string) []string {
	args := strings.Fields(b.CC)
	if len(args) == 0 {
		args = []string{"cc"}
	}

	args = append(args, b.CFlag...)

	srcDir := "."
	if b.Source != stdinSource {
		srcDir = filepath.Dir(b.Source)
	}

	args = append(args, "-I", srcDir)

	for _, inc := range fe.Include {
		args = append(args, "-I", inc)
	}

	for _, def := range fe.Define {
		args = append(args, "-D"+def)
	}

	ext := ".o"
	if b.Assemble {
		args = append(args, "-S")
		ext = ".s"
	} else {
		args = append(args, "-c")
	}

	out := b.Output
	if out == "" {
		out = b.baseName() + ext
	}

	return append(args, "-o", out, lowered)
}

// shellJoin quotes args for display.
func shellJoin(args []string) string {
	quoted := make([]string, len(args))

	for i, arg := range args {
		if arg != "" && !strings.ContainsAny(arg, " \t\n'\"\\$`*?[]{}()<>|&;#~") {
			quoted[i] = arg

			continue
		}

		quoted[i] = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
	}

	return strings.Join(quoted, " ")
}
