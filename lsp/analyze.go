package lsp

import (
	"context"
	"errors"
	"io"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/thradams/local-functions/cc"
)

// Result is what the server publishes for a document.
type Result struct {
	Diagnostics []protocol.Diagnostic
	Symbols     []protocol.DocumentSymbol
}

// Analyze parses text, the contents of the document uri, and reports its
// diagnostics, including those raised while lowering, and its symbols.
func Analyze(ctx context.Context, uri, text string, opts ...cc.Option) Result {
	name := UriToPath(uri)
	if name == "" {
		name = uri
	}

	res := Result{
		Diagnostics: []protocol.Diagnostic{},
		Symbols:     []protocol.DocumentSymbol{},
	}

	tu, err := cc.ParseSource(ctx, name, []byte(text), opts...)
	if err != nil {
		var d *cc.Diagnostic
		if errors.As(err, &d) {
			res.Diagnostics = ToLspDiagnostics(uri, name, cc.DiagnosticList{d})
			return res
		}
		res.Diagnostics = append(res.Diagnostics, protocol.Diagnostic{
			Range:    protocol.Range{End: protocol.Position{Character: 1}},
			Severity: severity(cc.SeverityError),
			Source:   ptrString(source),
			Message:  err.Error(),
		})
		return res
	}

	diags := append(cc.DiagnosticList{}, tu.Diagnostics...)
	if tu.Err() == nil {
		var lowering cc.DiagnosticList
		if err := tu.Lower(io.Discard); errors.As(err, &lowering) {
			diags = append(diags, lowering...)
		}
	}

	res.Diagnostics = ToLspDiagnostics(uri, name, diags)
	res.Symbols = DocumentSymbols(tu, text)
	return res
}
