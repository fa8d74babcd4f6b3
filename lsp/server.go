package lsp

import (
	"context"
	"log/slog"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/thradams/local-functions/cc"
	"github.com/thradams/local-functions/log"
)

// Server publishes the diagnostics of open C documents and lists the
// functions synthesized for them.
type Server struct {
	name    string
	version string
	store   *Store
	opts    []cc.Option
	handler protocol.Handler

	// Base context of every analysis; handlers receive none.
	ctx context.Context
}

// NewServer returns a server that parses documents with opts.
func NewServer(name, version string, opts ...cc.Option) *Server {
	s := &Server{
		name:    name,
		version: version,
		store:   NewStore(),
		opts:    opts,
		ctx:     context.Background(),
	}
	s.handler = protocol.Handler{
		Initialize:                 s.initialize,
		Initialized:                s.initialized,
		Shutdown:                   s.shutdown,
		SetTrace:                   s.setTrace,
		TextDocumentDidOpen:        s.textDocumentDidOpen,
		TextDocumentDidChange:      s.textDocumentDidChange,
		TextDocumentDidSave:        s.textDocumentDidSave,
		TextDocumentDidClose:       s.textDocumentDidClose,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
	}
	return s
}

// RunStdio serves the protocol over the standard streams until the
// client exits.
func (s *Server) RunStdio(ctx context.Context) error {
	s.ctx = ctx
	log.InfoContext(ctx, "language server starting", slog.String("name", s.name))
	return server.NewServer(&s.handler, s.name, false).RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	full := protocol.TextDocumentSyncKindFull
	caps := protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: &protocol.True,
			Change:    &full,
			Save:      protocol.SaveOptions{IncludeText: &protocol.False},
		},
		DocumentSymbolProvider: true,
	}

	return protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    s.name,
			Version: ptrString(s.version),
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	s.store.Set(uri, params.TextDocument.Text)
	return s.publishDiagnostics(ctx, uri, params.TextDocument.Text)
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	if len(params.ContentChanges) == 0 {
		return nil
	}

	text, ok := extractFullText(params.ContentChanges[len(params.ContentChanges)-1])
	if !ok {
		return nil
	}

	s.store.Set(uri, text)
	return s.publishDiagnostics(ctx, uri, text)
}

func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	if text, ok := s.store.Get(uri); ok {
		return s.publishDiagnostics(ctx, uri, text)
	}
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	s.store.Delete(uri)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *Server) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	uri := string(params.TextDocument.URI)
	text, ok := s.store.Get(uri)
	if !ok {
		return []protocol.DocumentSymbol{}, nil
	}
	return Analyze(s.ctx, uri, text, s.opts...).Symbols, nil
}

func (s *Server) publishDiagnostics(ctx *glsp.Context, uri string, text string) error {
	res := Analyze(s.ctx, uri, text, s.opts...)
	log.DebugContext(s.ctx, "publish diagnostics",
		slog.String("uri", uri),
		slog.Int("count", len(res.Diagnostics)),
	)

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: res.Diagnostics,
	})
	return nil
}

func extractFullText(change any) (string, bool) {
	switch typed := change.(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		return typed.Text, true
	case protocol.TextDocumentContentChangeEvent:
		return typed.Text, true
	default:
		return "", false
	}
}
