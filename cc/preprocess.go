package cc

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type condCtx uint8

const (
	IN_THEN condCtx = iota
	IN_ELIF
	IN_ELSE
)

// `#if` can be nested, so we use a stack to manage nested `#if`s.
type condIncl struct {
	ctx      condCtx
	tok      *Token
	included bool
}

type preprocessor struct {
	ctx    context.Context
	cfg    *config
	macros map[string]*Macro
	cond   []*condIncl

	files    []*File
	baseFile string
	counter  int
	now      time.Time

	// Every identifier spelled anywhere in the translation unit.
	idents map[string]struct{}
}

func newPreprocessor(ctx context.Context, cfg *config) *preprocessor {
	pp := &preprocessor{
		ctx:    ctx,
		cfg:    cfg,
		macros: map[string]*Macro{},
		now:    time.Now(),
		idents: map[string]struct{}{},
	}
	pp.initMacros()
	for _, d := range cfg.defines {
		pp.defineFromFlag(d)
	}
	return pp
}

func (t *Token) isHash() bool {
	return t.AtBeginningOfLine && t.isEqual("#")
}

// Some preprocessor directives such as #include allow extraneous
// tokens before newline. This function skips such tokens.
func (pp *preprocessor) skipLine(tok *Token) *Token {
	if tok.AtBeginningOfLine {
		return tok
	}

	pp.cfg.logger.Debug("extra token", slog.String("pos", tok.Pos().String()))
	for !tok.AtBeginningOfLine {
		tok = tok.Next
	}
	return tok
}

// copyLine copies all tokens until the next newline, terminates them
// with an EOF token and then returns them.
func copyLine(rest **Token, tok *Token) *Token {
	head := Token{}
	cur := &head

	for ; !tok.AtBeginningOfLine; tok = tok.Next {
		cur.Next = tok.copy()
		cur = cur.Next
	}

	cur.Next = newEOF(tok)
	*rest = tok
	return head.Next
}

// Skip until next `#else`, `#elif` or `#endif`.
// Nested `#if` and `#endif` are skipped.
func skipCondIncl2(tok *Token) *Token {
	for tok.Kind != TK_EOF {
		if tok.isHash() && (tok.Next.isEqual("if") || tok.Next.isEqual("ifdef") || tok.Next.isEqual("ifndef")) {
			tok = skipCondIncl2(tok.Next.Next)
			continue
		}
		if tok.isHash() && tok.Next.isEqual("endif") {
			return tok.Next.Next
		}
		tok = tok.Next
	}
	return tok
}

// Skip until next `#else`, `#elif` or `#endif`.
// Nested `#if` and `#endif` are skipped.
func skipCondIncl(tok *Token) *Token {
	for tok.Kind != TK_EOF {
		if tok.isHash() && (tok.Next.isEqual("if") || tok.Next.isEqual("ifdef") || tok.Next.isEqual("ifndef")) {
			tok = skipCondIncl2(tok.Next.Next)
			continue
		}

		if tok.isHash() && (tok.Next.isEqual("elif") || tok.Next.isEqual("elifdef") || tok.Next.isEqual("elifndef") ||
			tok.Next.isEqual("else") || tok.Next.isEqual("endif")) {
			break
		}
		tok = tok.Next
	}
	return tok
}

// Read an #if argument and evaluate it.
func (pp *preprocessor) evalConstExpr(rest **Token, tok *Token) int64 {
	start := tok
	expr := pp.readConstExpr(rest, tok.Next)
	expr = pp.preprocess2(expr)

	if expr.Kind == TK_EOF {
		errorTok(start, "no expression")
	}

	// The standard requires we replace remaining non-macro identifiers
	// with "0" before evaluating a constant expression. For example,
	// `#if foo` is equivalent to `#if 0` if foo is not defined.
	for t := expr; t.Kind != TK_EOF; t = t.Next {
		if t.Kind == TK_IDENT {
			val := 0
			if t.isEqual("true") {
				val = 1
			}
			next := t.Next
			*t = *pp.newNumToken(val, t)
			t.Next = next
		}
	}

	// Convert pp-numbers to regular numbers
	convertPpTokens(expr)

	p := newParser(pp.ctx, pp.cfg)
	var rest2 *Token
	val := p.constExpr(&rest2, expr)
	if rest2.Kind != TK_EOF {
		errorTok(rest2, "extra token")
	}
	return val
}

// Read a constant expression of a #if line, resolving "defined"
// and "__has_include" operators.
func (pp *preprocessor) readConstExpr(rest **Token, tok *Token) *Token {
	tok = copyLine(rest, tok)

	head := Token{}
	cur := &head

	for tok.Kind != TK_EOF {
		// "defined(foo)" or "defined foo" becomes "1" if macro "foo"
		// is defined. Otherwise "0".
		if tok.isEqual("defined") {
			start := tok
			hasParen := consume(&tok, tok.Next, "(")

			if tok.Kind != TK_IDENT {
				errorTok(start, "macro name must be an identifier")
			}
			m := pp.findMacro(tok)
			tok = tok.Next

			if hasParen {
				tok = skip(tok, ")")
			}

			val := 0
			if m != nil {
				val = 1
			}
			cur.Next = pp.newNumToken(val, start)
			cur = cur.Next
			continue
		}

		if tok.isEqual("__has_include") || tok.isEqual("__has_include_next") {
			start := tok
			tok = skip(tok.Next, "(")
			name, isDquote := pp.readIncludeName(&tok, tok)
			tok = skip(tok, ")")

			val := 0
			if pp.searchInclude(start, name, isDquote) != "" {
				val = 1
			} else if _, ok := builtinHeaders[name]; ok && !isDquote {
				val = 1
			}
			cur.Next = pp.newNumToken(val, start)
			cur = cur.Next
			continue
		}

		cur.Next = tok
		cur = cur.Next
		tok = tok.Next
	}

	cur.Next = tok
	return head.Next
}

func (pp *preprocessor) pushCondIncl(tok *Token, included bool) *condIncl {
	ci := &condIncl{ctx: IN_THEN, tok: tok, included: included}
	pp.cond = append(pp.cond, ci)
	return ci
}

func (pp *preprocessor) topCond(tok *Token, directive string) *condIncl {
	if len(pp.cond) == 0 {
		errorTok(tok, "stray #%s", directive)
	}
	return pp.cond[len(pp.cond)-1]
}

// Read an #include argument.
func (pp *preprocessor) readIncludeName(rest **Token, tok *Token) (string, bool) {
	// Pattern 1: #include "foo.h"
	if tok.Kind == TK_STR {
		// A double-quoted filename for #include is a special kind of
		// token, and we don't want to interpret any escape sequences in it.
		// For example, "\f" in "C:\foo" is not a formfeed character but
		// just two non-control characters, backslash and f.
		// So we don't want to use token->str.
		*rest = tok.Next
		text := tok.getText()
		return text[1 : len(text)-1], true
	}

	// Pattern 2: #include <foo.h>
	if tok.isEqual("<") {
		// Reconstruct a filename from a sequence of tokens between
		// "<" and ">".
		start := tok

		// Find closing ">".
		for ; !tok.isEqual(">"); tok = tok.Next {
			if tok.AtBeginningOfLine || tok.Kind == TK_EOF {
				errorTok(tok, "expected '>'")
			}
		}

		*rest = tok.Next
		return joinTokens(start.Next, tok), false
	}

	// Pattern 3: #include FOO
	// In this case FOO must be macro-expanded to either
	// a single string token or a sequence of "<" ... ">".
	if tok.Kind == TK_IDENT {
		var next *Token
		tok2 := pp.preprocess2(copyLine(&next, tok))
		var ignored *Token
		name, dq := pp.readIncludeName(&ignored, tok2)
		*rest = next
		return name, dq
	}

	errorTok(tok, "expected a filename")
	return "", false
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// searchInclude resolves an include name to a file path, or "".
func (pp *preprocessor) searchInclude(tok *Token, name string, isDquote bool) string {
	if filepath.IsAbs(name) {
		if fileExists(name) {
			return name
		}
		return ""
	}

	if isDquote && !tok.File.Builtin {
		path := filepath.Join(filepath.Dir(tok.File.Name), name)
		if fileExists(path) {
			return path
		}
	}

	for _, dir := range pp.cfg.includePaths {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// includeFile tokenizes the file at path and splices it before tok.
func (pp *preprocessor) includeFile(tok *Token, path string, filenameTok *Token) *Token {
	if err := pp.ctx.Err(); err != nil {
		errorTok(filenameTok, "%v", err)
	}

	// Check for "#pragma once"
	for _, f := range pp.files {
		if f.Name == path && f.once {
			return tok
		}
	}
	if len(pp.files) > 200 {
		errorTok(filenameTok, "#include nested too deeply")
	}

	contents, err := readFile(path)
	if err != nil {
		errorTok(filenameTok, "%s: cannot open file: %v", path, err)
	}

	f := newFile(path, len(pp.files)+1, contents)
	pp.files = append(pp.files, f)
	tok2 := pp.tokenizeFile(f)
	pp.cfg.logger.Debug("included", slog.String("path", path))
	return appendTokens(tok2, tok)
}

func (pp *preprocessor) tokenizeFile(f *File) *Token {
	tok := tokenize(f)
	for t := tok; t != nil; t = t.Next {
		if t.Kind == TK_IDENT {
			pp.idents[t.getText()] = struct{}{}
		}
	}
	return tok
}

// includeBuiltin splices the header model for name before tok.
func (pp *preprocessor) includeBuiltin(tok *Token, name string) *Token {
	for _, f := range pp.files {
		if f.Builtin && f.Name == "<"+name+">" {
			return tok
		}
	}
	f := newFile("<"+name+">", len(pp.files)+1, []byte(builtinHeaders[name]))
	f.Builtin = true
	pp.files = append(pp.files, f)
	return appendTokens(pp.tokenizeFile(f), tok)
}

// Visit all tokens in `tok` while evaluating preprocessing
// macros and directives.
func (pp *preprocessor) preprocess2(tok *Token) *Token {
	head := Token{}
	cur := &head

	for tok.Kind != TK_EOF {
		// If it is a macro, expand it.
		if pp.expandMacro(&tok, tok) {
			continue
		}

		// Pass through if it is not a "#".
		if !tok.isHash() {
			cur.Next = tok
			cur = cur.Next
			tok = tok.Next
			continue
		}

		start := tok
		tok = tok.Next

		if tok.isEqual("include") || tok.isEqual("include_next") {
			name, isDquote := pp.readIncludeName(&tok, tok.Next)
			tok = pp.skipLine(tok)

			if path := pp.searchInclude(start, name, isDquote); path != "" {
				tok = pp.includeFile(tok, path, start.Next.Next)
				continue
			}
			if _, ok := builtinHeaders[name]; ok {
				tok = pp.includeBuiltin(tok, name)
				continue
			}
			if isDquote {
				errorTok(start.Next.Next, "%s: file not found", name)
			}

			// Unknown system headers are left to the downstream compiler.
			pp.cfg.logger.Debug("system header not modeled", slog.String("name", name))
			continue
		}

		if tok.isEqual("define") {
			pp.readMacroDefinition(&tok, tok.Next)
			continue
		}

		if tok.isEqual("undef") {
			tok = tok.Next
			if tok.Kind != TK_IDENT {
				errorTok(tok, "macro name must be an identifier")
			}
			pp.undefMacro(tok.getText())
			tok = pp.skipLine(tok.Next)
			continue
		}

		if tok.isEqual("if") {
			val := pp.evalConstExpr(&tok, tok)
			pp.pushCondIncl(start, val != 0)
			if val == 0 {
				tok = skipCondIncl(tok)
			}
			continue
		}

		if tok.isEqual("ifdef") || tok.isEqual("ifndef") {
			neg := tok.isEqual("ifndef")
			defined := pp.findMacro(tok.Next) != nil
			pp.pushCondIncl(tok, defined != neg)
			tok = pp.skipLine(tok.Next.Next)
			if defined == neg {
				tok = skipCondIncl(tok)
			}
			continue
		}

		if tok.isEqual("elif") || tok.isEqual("elifdef") || tok.isEqual("elifndef") {
			ci := pp.topCond(start, "elif")
			if ci.ctx == IN_ELSE {
				errorTok(start, "stray #elif")
			}
			ci.ctx = IN_ELIF

			var cond bool
			switch {
			case ci.included:
				copyLine(&tok, tok.Next)
			case tok.isEqual("elif"):
				cond = pp.evalConstExpr(&tok, tok) != 0
			default:
				neg := tok.isEqual("elifndef")
				cond = (pp.findMacro(tok.Next) != nil) != neg
				tok = pp.skipLine(tok.Next.Next)
			}

			if !ci.included && cond {
				ci.included = true
			} else {
				tok = skipCondIncl(tok)
			}
			continue
		}

		if tok.isEqual("else") {
			ci := pp.topCond(start, "else")
			if ci.ctx == IN_ELSE {
				errorTok(start, "stray #else")
			}
			ci.ctx = IN_ELSE
			tok = pp.skipLine(tok.Next)

			if ci.included {
				tok = skipCondIncl(tok)
			}
			continue
		}

		if tok.isEqual("endif") {
			pp.topCond(start, "endif")
			pp.cond = pp.cond[:len(pp.cond)-1]
			tok = pp.skipLine(tok.Next)
			continue
		}

		if tok.isEqual("line") || tok.Kind == TK_PP_NUM {
			// Line markers do not change the reported positions.
			copyLine(&tok, tok)
			continue
		}

		if tok.isEqual("pragma") && tok.Next.isEqual("once") {
			start.File.once = true
			tok = pp.skipLine(tok.Next.Next)
			continue
		}

		if tok.isEqual("pragma") {
			copyLine(&tok, tok)
			continue
		}

		if tok.isEqual("error") {
			line := copyLine(&tok, tok.Next)
			errorTok(start, "#error %s", joinTokens(line, nil))
		}

		if tok.isEqual("warning") {
			line := copyLine(&tok, tok.Next)
			pp.cfg.logger.Warn("#warning", slog.String("pos", start.Pos().String()), slog.String("message", joinTokens(line, nil)))
			continue
		}

		// `#`-only line is legal. It's called a null directive.
		if tok.AtBeginningOfLine {
			continue
		}

		errorTok(tok, "invalid preprocessor directive")
	}

	cur.Next = tok
	return head.Next
}

// joinAdjacentStringLiterals concatenates adjacent string literals into
// the first one. The literal keeps the position of its first token.
func joinAdjacentStringLiterals(tok *Token) {
	for t := tok; t.Kind != TK_EOF; t = t.Next {
		if t.Kind != TK_STR || t.Next.Kind != TK_STR {
			continue
		}

		ty := t.Ty.Base
		n := t.Ty.ArrayLength
		var str []byte
		str = append(str, t.StringLiteral[:max(len(t.StringLiteral)-1, 0)]...)
		for t.Next.Kind == TK_STR {
			next := t.Next
			if next.Ty.Base.Size > ty.Size {
				ty = next.Ty.Base
			}
			n += next.Ty.ArrayLength - 1
			str = append(str, next.StringLiteral[:max(len(next.StringLiteral)-1, 0)]...)
			t.Next = next.Next
		}
		t.StringLiteral = append(str, 0)
		t.Ty = arrayOf(ty, n)
	}
}

// Entry point function of the preprocessor.
func (pp *preprocessor) preprocess(tok *Token) *Token {
	tok = pp.preprocess2(tok)
	if len(pp.cond) > 0 {
		errorTok(pp.cond[len(pp.cond)-1].tok, "unterminated conditional directive")
	}
	convertPpTokens(tok)
	joinAdjacentStringLiterals(tok)
	return tok
}
