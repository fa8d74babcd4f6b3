package cc

import (
	"fmt"
	"log/slog"
)

// typeShape is a parenthesized type name together with the positions
// needed to print it again as a function definition.
type typeShape struct {
	ty *CType

	attr    Span
	typ     Span
	namePos *Token

	// The declarator wrote the parameter list of ty.
	ownParams bool

	uses []*nameUse
}

// paren-type-name = "(" attribute* type-name ")"
func (p *parser) parenTypeName(rest **Token, tok *Token) *typeShape {
	sh := &typeShape{}
	tok = skip(tok, "(")

	attrStart := tok
	for isStdAttribute(tok) || tok.isEqual("__attribute__") {
		if isStdAttribute(tok) {
			tok = skipStdAttributes(tok)
		} else {
			tok = p.attributeList(tok, nil)
		}
	}
	if tok != attrStart {
		sh.attr = spanTo(attrStart, tok)
	}

	start := tok
	var uses []*nameUse
	saved := p.useLog
	p.useLog = &uses

	basety := p.declspec(&tok, tok, nil)
	sh.ty = p.abstractDeclarator(&tok, tok, basety, &sh.namePos)

	p.useLog = saved
	if saved != nil {
		*saved = append(*saved, uses...)
	}

	sh.uses = uses
	sh.typ = spanTo(start, tok)
	sh.ownParams = sh.ty.Kind == TY_FUNC && sh.namePos != nil && sh.namePos.isEqual("(")

	*rest = skip(tok, ")")
	return sh
}

var bodyKeywords = map[string]struct{}{
	"return": {}, "if": {}, "for": {}, "while": {}, "do": {}, "switch": {},
	"goto": {}, "break": {}, "continue": {}, "case": {}, "default": {},
}

// looksLikeBody reports whether the braces at tok hold statements rather
// than an initializer list.
func (p *parser) looksLikeBody(tok *Token) bool {
	first := tok.Next
	if _, ok := bodyKeywords[first.getText()]; ok && first.Kind == TK_KEYWORD {
		return true
	}
	if first.isEqual(";") || first.isEqual("{") || p.isTypename(first) && !first.isEqual("__attribute__") {
		return true
	}

	// A ";" outside of nested brackets ends a statement.
	depth := 0
	for t := first; t.Kind != TK_EOF; t = t.Next {
		switch {
		case t.isEqual("(") || t.isEqual("[") || t.isEqual("{"):
			depth++
		case t.isEqual(")") || t.isEqual("]"):
			depth--
		case t.isEqual("}"):
			if depth == 0 {
				return false
			}
			depth--
		case t.isEqual(";") && depth == 0:
			return true
		}
	}
	return false
}

// typedLiteral parses the braces following a parenthesized type name:
// the body of an unnamed function if the type is a function type, the
// initializer list of a compound literal otherwise.
func (p *parser) typedLiteral(rest **Token, start, tok *Token, sh *typeShape) *AstNode {
	if sh.ty.Kind == TY_FUNC {
		return p.funcLiteral(rest, start, tok, sh)
	}

	if p.looksLikeBody(tok) {
		d := newDiagnostic(SeverityError, ErrDeclaratorNotFunction, CodeDeclaratorNotFunc, sh.typ.Begin,
			"type name '%s' does not declare a function type", typeString(sh.ty))
		d.note(tok, "a function body follows here")
		panic(bailout{d})
	}

	return p.compoundLiteral(rest, start, tok, sh.ty)
}

// compound-literal = initializer
func (p *parser) compoundLiteral(rest **Token, start, tok *Token, ty *CType) *AstNode {
	if ty.Kind == TY_VLA {
		errorTok(start, "compound literal has variable size")
	}

	if p.fn == nil {
		v := p.newAnonGlobalVar(ty)
		p.globalVarInitializer(rest, tok, v)
		return newVarNode(v, start)
	}

	v := p.newTemp(ty)
	lhs := p.localVarInitializer(rest, tok, v)
	rhs := newVarNode(v, start)
	if lhs == nil {
		return rhs
	}
	return newBinary(ND_COMMA, lhs, rhs, start)
}

// newLitName returns the next reserved name that is not spelled anywhere
// in the input.
func (p *parser) newLitName() string {
	for {
		name := fmt.Sprintf("%s%d", p.cfg.prefix, p.nameID)
		p.nameID++
		if _, taken := p.idents[name]; !taken {
			return name
		}
	}
}

// ownParams reports whether the type name spells the parameter list of
// the function, so that a definition can reuse its text.
func (l *FuncLit) ownParams() bool {
	return l.NamePos != nil && l.NamePos.isEqual("(")
}

// brace returns the "{" opening the body.
func (l *FuncLit) brace() *Token {
	return l.Type.End.Next.Next
}

// litKey identifies an occurrence in the source text. Tokens substituted
// from a macro argument are copies; they are identified by position.
type litKey struct {
	tok  *Token
	file *File
	loc  int
}

func keyOf(tok *Token) litKey {
	if tok.macroArg && tok.Origin == nil {
		return litKey{file: tok.File, loc: tok.Location}
	}
	return litKey{tok: tok}
}

func funcLitNode(lit *FuncLit, tok *Token) *AstNode {
	node := newNode(ND_FUNCLIT, tok)
	node.FuncLit = lit
	node.Ty = lit.Ty
	return node
}

// funcLiteral parses the body of an unnamed function. The body is a
// function of its own: it has its own labels, it does not see the
// objects of the enclosing function and its parameters are those of
// the type name.
func (p *parser) funcLiteral(rest **Token, start, brace *Token, sh *typeShape) *AstNode {
	if lit := p.litAt[keyOf(start)]; lit != nil {
		// The same tokens are parsed again, e.g. when counting the
		// elements of an array initializer, or a macro argument is
		// substituted twice.
		*rest = matchingBrace(brace).Next
		return funcLitNode(lit, start)
	}

	ty := sh.ty
	if ty.ReturnType.Kind == TY_ARRAY || ty.ReturnType.Kind == TY_FUNC {
		errorTok(sh.typ.Begin, "function cannot return %s type", typeString(ty.ReturnType))
	}

	name := p.newLitName()
	fn := &Obj{
		Name:         name,
		Ty:           ty,
		Tok:          start,
		Align:        1,
		IsFunction:   true,
		IsDefinition: true,
		IsStatic:     true,
		Ext:          p.ext,
	}
	lit := &FuncLit{
		Name:    name,
		Fn:      fn,
		Ty:      ty,
		Start:   start,
		Type:    sh.typ,
		NamePos: sh.namePos,
		Attr:    sh.attr,
		ext:     p.ext,
	}
	fn.FuncLit = lit
	p.litAt[keyOf(start)] = lit

	if p.fn != nil && p.fn.lit != nil {
		lit.Parent = p.fn.lit
		lit.Parent.Children = append(lit.Parent.Children, lit)
	}

	c := &funcContext{outer: p.fn, fn: fn, lit: lit}
	lit.ctx = c

	// Names of the type name were resolved in the enclosing scope; they
	// are used by the new function.
	for _, u := range sh.uses {
		if u.sc.encloses(p.scope) {
			p.checkUse(c, u, true)
		}
	}

	savedScope, savedFn := p.scope, p.fn
	savedUneval, savedDecls, savedLog := p.uneval, p.declStack, p.useLog
	p.uneval, p.declStack, p.useLog = nil, nil, nil
	p.fn = c

	if sh.ownParams && ty.Scopes != nil {
		p.scope = ty.Scopes
		p.scope.Func = c
	} else {
		p.enterScope()
	}

	lit.Body = p.compoundStmt(rest, brace.Next)
	lit.End = matchingBrace(brace)
	fn.Body = lit.Body

	p.scope, p.fn = savedScope, savedFn
	p.uneval, p.declStack, p.useLog = savedUneval, savedDecls, savedLog

	p.resolveGotoLabels(c)

	p.lits = append(p.lits, lit)
	if p.ext != nil {
		p.ext.Lits = append(p.ext.Lits, lit)
	}

	p.cfg.logger.Debug("unnamed function",
		slog.String("name", name),
		slog.String("pos", start.Pos().String()),
		slog.String("type", typeString(ty)))

	return funcLitNode(lit, start)
}
