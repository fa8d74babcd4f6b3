package cli

import (
	"context"
	"iter"
	"slices"

	"github.com/alecthomas/kong"

	"github.com/thradams/local-functions/cc"
	"github.com/thradams/local-functions/cli/cmd"
	"github.com/thradams/local-functions/pkg"
)

// CLI is the top-level command-line interface for lfc.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Config  kong.ConfigFlag  `help:"Load flags from a YAML file."   placeholder:"FILE"`
	Version kong.VersionFlag `help:"Print the version and exit."`

	cmd.Frontend

	Lower   cmd.Lower   `cmd:"" default:"withargs" help:"Write the lowered translation of a C file (default)."`
	Check   cmd.Check   `cmd:""                    help:"Report diagnostics without writing output."`
	Build   cmd.Build   `cmd:""                    help:"Lower a C file and compile it with the system C compiler."`
	Symbols cmd.Symbols `cmd:""                    help:"List the functions synthesized for a C file."`
	LSP     cmd.LSP     `cmd:"" name:"lsp"         help:"Run a language server publishing diagnostics over stdio."`
}

// Run executes the lfc CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	configFilePath := configPath(baseConfig)

	vars := kong.Vars{
		"version": pkg.Name + " " + pkg.VersionString(),
		"prefix":  cc.DefaultPrefix,
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags so that they apply regardless of their
	// position on the command line.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.Bind(&cli.Frontend),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(loadYAML, configFilePath),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)

	defer cli.Log.start(ctx)()

	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx)
}

func collect(seq iter.Seq[string]) []string {
	return slices.Collect(seq)
}
