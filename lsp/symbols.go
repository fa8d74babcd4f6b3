package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/thradams/local-functions/cc"
)

// DocumentSymbols lists the functions synthesized for the unnamed
// functions spelled in the main file of tu, nested as they are written.
func DocumentSymbols(tu *cc.TranslationUnit, text string) []protocol.DocumentSymbol {
	ls := splitLines(text)
	syms := tu.Symbols()
	byName := map[string]*cc.FuncLit{}
	for _, lit := range tu.FuncLits {
		byName[lit.Name] = lit
	}
	sigs := map[string]string{}
	for _, s := range syms {
		sigs[s.Name] = s.Signature
	}

	var build func(lit *cc.FuncLit, sig string) (protocol.DocumentSymbol, bool)
	build = func(lit *cc.FuncLit, sig string) (protocol.DocumentSymbol, bool) {
		start, end := lit.Start.Pos(), lit.End.Pos()
		if start.File != tu.File.Name || end.File != tu.File.Name {
			return protocol.DocumentSymbol{}, false
		}
		endPos := ls.position(end)
		endPos.Character++

		sym := protocol.DocumentSymbol{
			Name:   lit.Name,
			Detail: ptrString(sig),
			Kind:   protocol.SymbolKindFunction,
			Range: protocol.Range{
				Start: ls.position(start),
				End:   endPos,
			},
		}
		sym.SelectionRange = protocol.Range{
			Start: sym.Range.Start,
			End:   protocol.Position{Line: sym.Range.Start.Line, Character: sym.Range.Start.Character + 1},
		}
		for _, child := range lit.Children {
			if c, ok := build(child, sigs[child.Name]); ok {
				sym.Children = append(sym.Children, c)
			}
		}
		return sym, true
	}

	out := []protocol.DocumentSymbol{}
	for _, s := range syms {
		lit := byName[s.Name]
		if lit == nil || lit.Parent != nil {
			continue
		}
		if sym, ok := build(lit, s.Signature); ok {
			out = append(out, sym)
		}
	}
	return out
}
