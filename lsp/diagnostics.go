package lsp

import (
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/thradams/local-functions/cc"
)

const source = "lfc"

// ToLspDiagnostics converts the diagnostics of the file named name, open
// as uri. Diagnostics located in other files, such as included headers,
// are reported at the start of the document.
func ToLspDiagnostics(uri, name string, ds cc.DiagnosticList) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(ds))
	for _, d := range ds {
		pd := protocol.Diagnostic{
			Severity: severity(d.Severity),
			Source:   ptrString(source),
			Message:  d.Message,
		}
		if d.Pos.File == name {
			pd.Range = toRange(d.SourceLine, d.Pos, d.Length)
		} else {
			pd.Range = protocol.Range{End: protocol.Position{Character: 1}}
			pd.Message = fmt.Sprintf("%s: %s", d.Pos, d.Message)
		}
		if d.Code != "" {
			code := protocol.IntegerOrString{Value: d.Code}
			pd.Code = &code
		}
		for _, n := range d.Notes {
			loc := protocol.Location{
				URI:   protocol.DocumentUri(uri),
				Range: toRange(n.SourceLine, n.Pos, n.Length),
			}
			if n.Pos.File != name {
				loc.URI = protocol.DocumentUri(PathToURI(n.Pos.File))
			}
			pd.RelatedInformation = append(pd.RelatedInformation, protocol.DiagnosticRelatedInformation{
				Location: loc,
				Message:  n.Message,
			})
		}
		out = append(out, pd)
	}
	return out
}

func severity(s cc.Severity) *protocol.DiagnosticSeverity {
	sev := protocol.DiagnosticSeverityError
	switch s {
	case cc.SeverityWarning:
		sev = protocol.DiagnosticSeverityWarning
	case cc.SeverityNote:
		sev = protocol.DiagnosticSeverityInformation
	}
	return &sev
}

func ptrString(s string) *string { return &s }
