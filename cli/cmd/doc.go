// Package cmd implements the lfc commands.
//
// Every command parses its C source with the options of [Frontend] and
// writes the diagnostics of the translation unit to the error stream in
// the caret style. A command fails with [ErrDiagnostics] when the unit
// has errors.
package cmd
