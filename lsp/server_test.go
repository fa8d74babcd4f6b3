package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

)

// recorder collects published diagnostics.
type recorder struct {
	published []*protocol.PublishDiagnosticsParams
}

func (r *recorder) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			if method != protocol.ServerTextDocumentPublishDiagnostics {
				return
			}
			if p, ok := params.(*protocol.PublishDiagnosticsParams); ok {
				r.published = append(r.published, p)
			}
		},
	}
}

func (r *recorder) last(t *testing.T) *protocol.PublishDiagnosticsParams {
	t.Helper()
	require.NotEmpty(t, r.published)
	return r.published[len(r.published)-1]
}

const badSource = `int main(void) {
  int i = 1;
  int (*f)(void) = (int (void)) { return i; };
  return f();
}
`

const goodSource = `int main(void) {
  int (*f)(void) = (int (void)) { return 1; };
  return f();
}
`

func TestServer_DocumentLifecycle(t *testing.T) {
	s := NewServer("lfc", "test")
	var rec recorder

	err := s.textDocumentDidOpen(rec.context(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        testURI,
			LanguageID: "c",
			Version:    1,
			Text:       badSource,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.DocumentUri(testURI), rec.last(t).URI)
	assert.Len(t, rec.last(t).Diagnostics, 1)

	err = s.textDocumentDidChange(rec.context(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
			Version:                2,
		},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEventWhole{Text: goodSource},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, rec.last(t).Diagnostics)

	text, ok := s.store.Get(testURI)
	require.True(t, ok)
	assert.Equal(t, goodSource, text)

	syms, err := s.textDocumentDocumentSymbol(rec.context(), &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	require.Len(t, syms, 1)

	err = s.textDocumentDidSave(rec.context(), &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	assert.Len(t, rec.published, 3)

	err = s.textDocumentDidClose(rec.context(), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	assert.Empty(t, rec.last(t).Diagnostics)

	_, ok = s.store.Get(testURI)
	assert.False(t, ok)
}

func TestServer_IgnoresIncrementalChanges(t *testing.T) {
	s := NewServer("lfc", "test")
	var rec recorder

	err := s.textDocumentDidChange(rec.context(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
		},
		ContentChanges: []any{"not a change event"},
	})
	require.NoError(t, err)
	assert.Empty(t, rec.published)
}

func TestServer_Initialize(t *testing.T) {
	s := NewServer("lfc", "1.2.3")
	var rec recorder

	res, err := s.initialize(rec.context(), &protocol.InitializeParams{})
	require.NoError(t, err)

	result, ok := res.(protocol.InitializeResult)
	require.True(t, ok)
	assert.Equal(t, "lfc", result.ServerInfo.Name)
	require.NotNil(t, result.ServerInfo.Version)
	assert.Equal(t, "1.2.3", *result.ServerInfo.Version)
	assert.Equal(t, true, result.Capabilities.DocumentSymbolProvider)
}
