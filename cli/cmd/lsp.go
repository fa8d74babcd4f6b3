package cmd

import (
	"context"

	"github.com/thradams/local-functions/lsp"
	"github.com/thradams/local-functions/pkg"
)

// LSP serves the language server protocol over stdio.
type LSP struct{}

// Run executes the lsp command.
func (l *LSP) Run(ctx context.Context, fe *Frontend) error {
	trace(ctx)

	srv := lsp.NewServer(pkg.Name, pkg.VersionString(), fe.options()...)
	if err := srv.RunStdio(ctx); err != nil {
		return ErrLSP.Wrap(err)
	}

	return nil
}
