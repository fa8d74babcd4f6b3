// Package lsp implements a language server for C with unnamed functions.
//
// The server keeps the full text of every open document, reparses it on
// each change, and publishes the diagnostics of the translation unit,
// including those only lowering detects. Document symbols list the
// functions that lowering synthesizes.
package lsp
