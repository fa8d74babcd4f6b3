// This file contains a recursive descent parser for C.
//
// Most functions in this file are named after the symbols they are
// supposed to read from an input token list. For example, stmt() is
// responsible for reading a statement from a token list. The function
// then construct an AST node representing a statement.
//
// Each function conceptually returns two values, an AST node and
// remaining part of the input tokens. The remaining tokens are returned
// to the caller via a pointer argument.
//
// Input tokens are represented by a linked list. Unlike many recursive
// descent parsers, we don't have the notion of the "input token stream".
// So it is very easy to lookahead arbitrary number of tokens in this
// parser.

package cc

import (
	"context"
	"log/slog"
)

var typeNames = map[string]struct{}{
	"void":          {},
	"char":          {},
	"short":         {},
	"int":           {},
	"long":          {},
	"struct":        {},
	"union":         {},
	"typedef":       {},
	"_Bool":         {},
	"bool":          {},
	"enum":          {},
	"static":        {},
	"extern":        {},
	"_Alignas":      {},
	"alignas":       {},
	"signed":        {},
	"__signed__":    {},
	"unsigned":      {},
	"const":         {},
	"__const":       {},
	"__const__":     {},
	"volatile":      {},
	"__volatile__":  {},
	"auto":          {},
	"register":      {},
	"restrict":      {},
	"__restrict":    {},
	"__restrict__":  {},
	"_Noreturn":     {},
	"float":         {},
	"double":        {},
	"inline":        {},
	"__inline":      {},
	"__inline__":    {},
	"_Thread_local": {},
	"thread_local":  {},
	"__thread":      {},
	"constexpr":     {},
	"_Atomic":       {},
	"typeof":        {},
	"typeof_unqual": {},
	"__typeof":      {},
	"__typeof__":    {},
	"__extension__": {},
	"__attribute__": {},

	"__builtin_va_list": {},
}

// parser holds the state of one translation unit.
type parser struct {
	ctx context.Context
	cfg *config

	scope     *Scope
	fileScope *Scope
	globals   *Obj

	// Innermost function context, nil at file scope.
	fn *funcContext

	// External declaration being parsed.
	ext  *extDecl
	exts []*extDecl

	lits []*FuncLit

	// Unnamed functions by their opening token, for input parsed twice.
	litAt map[litKey]*FuncLit

	// Identifiers spelled in the input; synthesized names avoid them.
	idents map[string]struct{}
	nameID int

	evalRecover *bool

	// Open unevaluated operands, innermost last.
	uneval []*unevalFrame

	// Names resolved while parsing a parenthesized type name.
	useLog *[]*nameUse

	// Block-scope declarations being parsed, innermost last.
	declStack []*LocalDecl
	declSeq   int

	diags DiagnosticList
}

func newParser(ctx context.Context, cfg *config) *parser {
	sc := &Scope{}
	return &parser{
		ctx:       ctx,
		cfg:       cfg,
		scope:     sc,
		fileScope: sc,
		litAt:     map[litKey]*FuncLit{},
		idents:    map[string]struct{}{},
	}
}

// report records d. Input parsed twice reports the same diagnostic
// again; it is kept once.
func (p *parser) report(d *Diagnostic) *Diagnostic {
	for _, x := range p.diags {
		if x.Code == d.Code && x.Pos == d.Pos && x.Message == d.Message {
			return x
		}
	}
	p.diags = append(p.diags, d)
	return d
}

func (p *parser) enterScope() {
	sc := &Scope{Parent: p.scope, SiblingNext: p.scope.Children, Func: p.fn}
	p.scope.Children = sc
	p.scope = sc
}

func (p *parser) leaveScope() {
	p.scope = p.scope.Parent
}

// Find a variable by name.
func (p *parser) findVariable(tok *Token) (*VarScope, *Scope) {
	name := tok.getText()
	for sc := p.scope; sc != nil; sc = sc.Parent {
		if vs := sc.Vars[name]; vs != nil {
			return vs, sc
		}
	}
	return nil, nil
}

func (p *parser) findTag(tok *Token) (*CType, *Scope) {
	name := tok.getText()
	for sc := p.scope; sc != nil; sc = sc.Parent {
		if ty := sc.Tags[name]; ty != nil {
			return ty, sc
		}
	}
	return nil, nil
}

func (p *parser) pushScope(name string) *VarScope {
	vs := &VarScope{}
	if p.scope.Vars == nil {
		p.scope.Vars = make(map[string]*VarScope)
	}
	p.scope.Vars[name] = vs
	return vs
}

func (p *parser) pushTagScope(tok *Token, ty *CType) {
	if p.scope.Tags == nil {
		p.scope.Tags = make(map[string]*CType)
	}
	p.scope.Tags[tok.getText()] = ty
}

func commaList(rest **Token, tokRest **Token, end string, skipComma bool) bool {
	tok := *tokRest
	if consume(rest, tok, end) {
		return false
	}

	if skipComma {
		tok = skip(tok, ",")

		// curly brackets allow trailing comma
		if end == "}" && consume(rest, tok, "}") {
			return false
		}

		*tokRest = tok
	}

	return true
}

func skip(tok *Token, op string) *Token {
	if !tok.isEqual(op) {
		errorTok(tok, "expected '%s'", op)
	}
	return tok.Next
}

func consume(rest **Token, tok *Token, str string) bool {
	if tok.isEqual(str) {
		*rest = tok.Next
		return true
	}
	return false
}

// spanTo returns the tokens from begin up to, but excluding, next.
func spanTo(begin, next *Token) Span {
	if begin == next {
		return Span{}
	}
	end := begin
	for end.Next != nil && end.Next != next {
		end = end.Next
	}
	return Span{Begin: begin, End: end}
}

func (p *parser) newVar(name string, ty *CType) *Obj {
	v := &Obj{Name: name, Ty: ty, Align: ty.Align}
	if name != "" {
		p.pushScope(name).Variable = v
	}
	return v
}

func (p *parser) newLocalVar(name string, ty *CType) *Obj {
	v := p.newVar(name, ty)
	v.IsLocal = true
	return v
}

// newTemp returns an unnamed local used by desugared expressions.
func (p *parser) newTemp(ty *CType) *Obj {
	return &Obj{Ty: ty, Align: ty.Align, IsLocal: true}
}

func (p *parser) newGlobalVar(name string, ty *CType) *Obj {
	v := p.newVar(name, ty)
	v.Next = p.globals
	v.Ext = p.ext
	p.globals = v
	return v
}

func (p *parser) newAnonGlobalVar(ty *CType) *Obj {
	v := &Obj{Ty: ty, Align: ty.Align, IsDefinition: true, IsStatic: true}
	return v
}

func (p *parser) findTypeDef(tok *Token) (*VarScope, *Scope) {
	if tok.Kind != TK_IDENT {
		return nil, nil
	}
	vs, sc := p.findVariable(tok)
	if vs == nil || vs.TypeDef == nil {
		return nil, nil
	}
	return vs, sc
}

// Returns true if a given token represents a type.
func (p *parser) isTypename(tok *Token) bool {
	if _, ok := typeNames[tok.getText()]; ok && tok.Kind != TK_STR {
		return true
	}
	vs, _ := p.findTypeDef(tok)
	return vs != nil
}

// isStdAttribute reports whether tok starts a C23 attribute specifier.
func isStdAttribute(tok *Token) bool {
	return tok.isEqual("[") && tok.Next.isEqual("[")
}

// skipStdAttributes skips "[[" ... "]]" sequences.
func skipStdAttributes(tok *Token) *Token {
	for isStdAttribute(tok) {
		depth := 0
		for {
			if tok.Kind == TK_EOF {
				errorTok(tok, "unterminated attribute")
			}
			if tok.isEqual("[") {
				depth++
			} else if tok.isEqual("]") {
				depth--
			}
			tok = tok.Next
			if depth == 0 {
				break
			}
		}
	}
	return tok
}

// attribute = ("__attribute__" "(" "(" attr ("," attr)* ")" ")")*
//
// Only "packed" and "aligned" change the layout of a type; other
// attributes are accepted and left to the downstream compiler.
func (p *parser) attributeList(tok *Token, ty *CType) *Token {
	for consume(&tok, tok, "__attribute__") {
		tok = skip(tok, "(")
		tok = skip(tok, "(")

		first := true

		for ; commaList(&tok, &tok, ")", !first); first = false {
			if ty != nil && (tok.isEqual("packed") || tok.isEqual("__packed__")) {
				ty.IsPacked = true
				tok = tok.Next
				continue
			}

			if ty != nil && (tok.isEqual("aligned") || tok.isEqual("__aligned__")) && tok.Next.isEqual("(") {
				tok = skip(tok.Next, "(")
				ty.Align = p.constExpr(&tok, tok)
				tok = skip(tok, ")")
				continue
			}

			if tok.Kind != TK_IDENT && tok.Kind != TK_KEYWORD {
				errorTok(tok, "expected an attribute name")
			}
			tok = tok.Next
			if tok.isEqual("(") {
				tok = skipParen(tok.Next)
			}
		}

		tok = skip(tok, ")")
	}

	return tok
}

// typeof-specifier = "(" (expr | typename) ")"
func (p *parser) typeofSpecifier(rest **Token, tok *Token) *CType {
	tok = skip(tok, "(")

	p.beginUneval()
	var ty *CType
	if p.isTypename(tok) {
		ty = p.typeName(&tok, tok)
	} else {
		node := p.expr(&tok, tok)
		node.addType()
		ty = node.Ty
	}
	p.endUneval(ty.isVariablyModified())
	*rest = skip(tok, ")")
	return ty
}

/*
 * declspec = ("void" | "char" | "short" | "int" | "long" | "_Bool"
 *             | "typedef" | "static" | "extern" | "inline"
 *             | "_Thread_local" | "__thread" | "constexpr"
 *             | "signed" | "unsigned"
 *             | struct-decl | union-decl | typedef-name
 *             | enum-specifier | typeof-specifier
 *             | "const" | "volatile" | "auto" | "register" | "restrict"
 *             | "__restrict" | "__restrict__" | "_Noreturn")+
 *
 * The order of typenames in a type-specifier doesn't matter. For
 * example, `int long static` means the same as `static long int`.
 * That can also be written as `static long` because you can omit
 * `int` if `long` or `short` are specified. However, something like
 * `char int` is not a valid type specifier. We have to accept only a
 * limited combinations of the typenames.
 *
 * In this function, we count the number of occurrences of each typename
 * while keeping the "current" type object that the typenames up
 * until that point represent. When we reach a non-typename token,
 * we returns the current type object.
 */
func (p *parser) declspec(rest **Token, tok *Token, attr *VarAttr) *CType {
	// We use a single integer as counters for all typenames.
	// For example, bits 0 and 1 represents how many times we saw the
	// keyword "void" so far. With this, we can use a switch statement
	// as you can see below.
	const (
		VOID     = 1 << 0
		BOOL     = 1 << 2
		CHAR     = 1 << 4
		SHORT    = 1 << 6
		INT      = 1 << 8
		LONG     = 1 << 10
		FLOAT    = 1 << 12
		DOUBLE   = 1 << 14
		OTHER    = 1 << 16 // struct, union or typedef name
		SIGNED   = 1 << 17
		UNSIGNED = 1 << 18
	)

	ty := TyInt
	counter := 0
	isAtomic := false
	isConst := false

	for p.isTypename(tok) {
		// Handle storage class specifiers.
		if tok.isEqual("typedef") || tok.isEqual("static") || tok.isEqual("extern") ||
			tok.isEqual("inline") || tok.isEqual("__inline") || tok.isEqual("__inline__") ||
			tok.isEqual("_Thread_local") || tok.isEqual("thread_local") || tok.isEqual("__thread") ||
			tok.isEqual("constexpr") {
			if attr == nil {
				errorTok(tok, "storage class specifier is not allowed in this context")
			}
			switch {
			case tok.isEqual("typedef"):
				attr.IsTypeDef = true
			case tok.isEqual("static"):
				attr.IsStatic = true
			case tok.isEqual("extern"):
				attr.IsExtern = true
			case tok.isEqual("constexpr"):
				attr.IsConstexpr = true
				isConst = true
			case tok.isEqual("inline") || tok.isEqual("__inline") || tok.isEqual("__inline__"):
				attr.IsInline = true
			default:
				attr.IsTls = true
			}

			if attr.IsTypeDef {
				if attr.IsExtern || attr.IsStatic || attr.IsInline || attr.IsTls || attr.IsConstexpr {
					errorTok(tok, "typedef may not be used together with static, extern, inline, constexpr or thread_local")
				}
			}
			tok = tok.Next
			continue
		}

		if tok.isEqual("const") || tok.isEqual("__const") || tok.isEqual("__const__") {
			isConst = true
			tok = tok.Next
			continue
		}

		// These keywords are recognized but ignored.
		if consume(&tok, tok, "volatile") || consume(&tok, tok, "__volatile__") || consume(&tok, tok, "auto") ||
			consume(&tok, tok, "register") || consume(&tok, tok, "restrict") || consume(&tok, tok, "__restrict") ||
			consume(&tok, tok, "__restrict__") || consume(&tok, tok, "_Noreturn") || consume(&tok, tok, "__extension__") {
			continue
		}

		if tok.isEqual("__attribute__") {
			tok = p.attributeList(tok, nil)
			continue
		}

		if tok.isEqual("_Atomic") {
			tok = tok.Next
			if tok.isEqual("(") {
				ty = p.typeName(&tok, tok.Next)
				tok = skip(tok, ")")
				counter += OTHER
			}
			isAtomic = true
			continue
		}

		if tok.isEqual("_Alignas") || tok.isEqual("alignas") {
			if attr == nil {
				errorTok(tok, "_Alignas is not allowed in this context")
			}
			tok = skip(tok.Next, "(")

			if p.isTypename(tok) {
				attr.Align = p.typeName(&tok, tok).Align
			} else {
				attr.Align = p.constExpr(&tok, tok)
			}
			tok = skip(tok, ")")
			continue
		}

		// Handle user-defined types.
		vs, sc := p.findTypeDef(tok)
		if tok.isEqual("struct") || tok.isEqual("union") || tok.isEqual("enum") ||
			tok.isEqual("typeof") || tok.isEqual("typeof_unqual") || tok.isEqual("__typeof") || tok.isEqual("__typeof__") ||
			tok.isEqual("__builtin_va_list") || vs != nil {
			if counter != 0 {
				break
			}

			switch {
			case tok.isEqual("struct"):
				ty = p.structDecl(&tok, tok, tok.Next)
			case tok.isEqual("union"):
				ty = p.unionDecl(&tok, tok, tok.Next)
			case tok.isEqual("enum"):
				ty = p.enumSpecifier(&tok, tok, tok.Next)
			case tok.isEqual("typeof_unqual"):
				ty = p.typeofSpecifier(&tok, tok.Next).unqualified()
			case tok.isEqual("typeof") || tok.isEqual("__typeof") || tok.isEqual("__typeof__"):
				ty = p.typeofSpecifier(&tok, tok.Next)
			case tok.isEqual("__builtin_va_list"):
				ty = pointerTo(TyVoid)
				tok = tok.Next
			default:
				p.noteName(&nameUse{tok: tok, sc: sc, vs: vs})
				ty = vs.TypeDef.aliased(tok, vs.Decl)
				tok = tok.Next
			}

			counter += OTHER
			continue
		}

		// Handle built-in types.
		switch {
		case tok.isEqual("void"):
			counter += VOID
		case tok.isEqual("_Bool") || tok.isEqual("bool"):
			counter += BOOL
		case tok.isEqual("char"):
			counter += CHAR
		case tok.isEqual("short"):
			counter += SHORT
		case tok.isEqual("int"):
			counter += INT
		case tok.isEqual("long"):
			counter += LONG
		case tok.isEqual("float"):
			counter += FLOAT
		case tok.isEqual("double"):
			counter += DOUBLE
		case tok.isEqual("signed") || tok.isEqual("__signed__"):
			counter |= SIGNED
		case tok.isEqual("unsigned"):
			counter |= UNSIGNED
		default:
			errorTok(tok, "expected a typename")
		}

		switch counter {
		case VOID:
			ty = TyVoid
		case BOOL:
			ty = TyBool
		case CHAR:
			ty = TyPChar
		case SIGNED + CHAR:
			ty = TyChar
		case UNSIGNED + CHAR:
			ty = TyUChar
		case SHORT, SHORT + INT, SIGNED + SHORT, SIGNED + SHORT + INT:
			ty = TyShort
		case UNSIGNED + SHORT, UNSIGNED + SHORT + INT:
			ty = TyUShort
		case INT, SIGNED, SIGNED + INT:
			ty = TyInt
		case UNSIGNED, UNSIGNED + INT:
			ty = TyUInt
		case LONG, LONG + INT, SIGNED + LONG, SIGNED + LONG + INT:
			ty = TyLong
		case LONG + LONG, LONG + LONG + INT, SIGNED + LONG + LONG, SIGNED + LONG + LONG + INT:
			ty = TyLLong
		case UNSIGNED + LONG, UNSIGNED + LONG + INT:
			ty = TyULong
		case UNSIGNED + LONG + LONG, UNSIGNED + LONG + LONG + INT:
			ty = TyULLong
		case FLOAT:
			ty = TyFloat
		case DOUBLE:
			ty = TyDouble
		case LONG + DOUBLE:
			ty = TyLDouble
		default:
			errorTok(tok, "invalid type")
		}

		tok = tok.Next
	}

	if isAtomic {
		ty = ty.copy()
		ty.IsAtomic = true
	}
	if isConst {
		ty = ty.qualified()
	}

	*rest = tok
	return ty
}

/*
 * enum-specifier = ident? "{" enum-list? "}"
 *                | ident ("{" enum-list? "}")?
 *
 * enum-list      = ident ("=" num)? ("," ident ("=" num)?)* ","?
 */
func (p *parser) enumSpecifier(rest **Token, kw *Token, tok *Token) *CType {
	ty := enumType()

	// Read a enum tag.
	var tag *Token
	if tok.Kind == TK_IDENT {
		tag = tok
		tok = tok.Next
	}

	// C23 fixed underlying type: "enum E : T".
	if tok.isEqual(":") {
		base := p.typeName(&tok, tok.Next)
		ty.Size, ty.Align, ty.IsUnsigned = base.Size, base.Align, base.IsUnsigned
	}

	if tag != nil && !tok.isEqual("{") {
		ty2, sc := p.findTag(tag)
		if ty2 == nil {
			errorTok(tag, "unknown enum type")
		}
		if ty2.Kind != TY_ENUM {
			errorTok(tag, "not an enum tag")
		}
		p.noteName(&nameUse{tok: tag, sc: sc, tag: ty2})

		*rest = tok
		return ty2
	}

	ty.Tag = tag
	decl := p.beginDecl(DeclTag, kw)

	tok = skip(tok, "{")

	// Read an enum-list.
	var val int64
	first := true
	for ; commaList(&tok, &tok, "}", !first); first = false {
		nameTok := tok
		name := tok.getIdent()
		tok = tok.Next

		if tok.isEqual("=") {
			val = p.constExpr(&tok, tok.Next)
		}

		vs := p.pushScope(name)
		vs.EnumType = ty
		vs.EnumValue = val
		vs.Decl = decl
		if decl != nil {
			decl.Names = append(decl.Names, nameTok.getText())
		}
		val++
	}

	ty.Def = spanTo(kw, tok)
	*rest = tok
	p.endDecl(decl, ty.Def.End)
	ty.Decl = decl

	if tag != nil {
		if decl != nil {
			decl.Tag = tag.getText()
		}
		p.pushTagScope(tag, ty)
	}

	return ty
}

// struct-members = (declspec declarator (","  declarator)* ";")*
func (p *parser) structMembers(rest **Token, tok *Token, ty *CType) {
	head := Member{}
	cur := &head
	idx := 0

	for !tok.isEqual("}") {
		if tok.isEqual("_Static_assert") || tok.isEqual("static_assert") {
			p.staticAssertion(&tok, tok.Next)
			continue
		}

		attr := VarAttr{}
		basety := p.declspec(&tok, tok, &attr)

		// Anonymous struct member
		if (basety.Kind == TY_STRUCT || basety.Kind == TY_UNION) && consume(&tok, tok, ";") {
			mem := &Member{Index: idx}
			idx++
			mem.Ty = basety
			if attr.Align != 0 {
				mem.Align = attr.Align
			} else {
				mem.Align = mem.Ty.Align
			}
			cur.Next = mem
			cur = cur.Next
			continue
		}

		// Regular struct members
		first := true
		for ; commaList(&tok, &tok, ";", !first); first = false {
			mem := &Member{Index: idx}
			idx++
			mem.Ty = p.declarator(&tok, tok, basety, &mem.Name)
			if attr.Align > 0 {
				mem.Align = attr.Align
			} else {
				mem.Align = mem.Ty.Align
			}

			if mem.Ty.isVariablyModified() {
				errorTok(tok, "members cannot be of variably-modified type")
			}

			if consume(&tok, tok, ":") {
				mem.IsBitfield = true
				mem.BitWidth = p.constExpr(&tok, tok)
			}
			tok = p.attributeList(tok, nil)

			cur.Next = mem
			cur = cur.Next
		}
	}

	// If the last element is an array of incomplete type, it's
	// called a "flexible array member". It should behave as if
	// if were a zero-sized array.
	if cur != &head && cur.Ty.Kind == TY_ARRAY && cur.Ty.ArrayLength < 0 {
		cur.Ty = arrayOf(cur.Ty.Base, 0)
		ty.IsFlexible = true
	}

	*rest = tok.Next
	ty.Members = head.Next
}

// struct-union-decl = attribute? ident? ("{" struct-members)?
func (p *parser) structUnionDecl(rest **Token, kw *Token, tok *Token, noList *bool) *CType {
	ty := structType()
	tok = p.attributeList(tok, ty)

	// Read a struct tag.
	var tag *Token
	if tok.Kind == TK_IDENT {
		tag = tok
		tok = tok.Next
	}

	if tag != nil && !tok.isEqual("{") {
		*rest = tok
		*noList = true

		ty2, sc := p.findTag(tag)
		if ty2 != nil {
			p.noteName(&nameUse{tok: tag, sc: sc, tag: ty2})
			return ty2
		}

		ty.Size = -1
		ty.Tag = tag
		if decl := p.beginDecl(DeclTag, kw); decl != nil {
			decl.Tag = tag.getText()
			p.endDecl(decl, tag)
			ty.Decl = decl
		}
		p.pushTagScope(tag, ty)
		return ty
	}

	decl := p.beginDecl(DeclTag, kw)
	tok = skip(tok, "{")

	// Construct a struct object.
	p.structMembers(&tok, tok, ty)
	closing := spanTo(kw, tok).End
	*rest = p.attributeList(tok, ty)

	ty.Tag = tag
	ty.Def = Span{Begin: kw, End: closing}
	p.endDecl(decl, closing)
	ty.Decl = decl

	if tag != nil {
		if decl != nil {
			decl.Tag = tag.getText()
		}

		// If this is a redefinition, overwrite a previous type.
		// Otherwise, register the struct type.
		if ty2 := p.scope.Tags[tag.getText()]; ty2 != nil {
			*ty2 = *ty
			return ty2
		}
		p.pushTagScope(tag, ty)
	}
	return ty
}

// struct-decl = struct-union-decl
func (p *parser) structDecl(rest **Token, kw *Token, tok *Token) *CType {
	noList := false
	ty := p.structUnionDecl(rest, kw, tok, &noList)
	ty.Kind = TY_STRUCT

	if noList {
		return ty
	}

	// Assign offsets within the struct to members.
	bits := int64(0)
	head := Member{}
	cur := &head

	for mem := ty.Members; mem != nil; mem = mem.Next {
		sz := mem.Ty.Size
		if mem.IsBitfield && mem.BitWidth == 0 {
			// Zero-width anonymous bitfield has a special meaning.
			// It affects only alignment.
			bits = alignTo(bits, mem.Ty.Size*8)
		} else if mem.IsBitfield {
			if bits/(sz*8) != (bits+mem.BitWidth-1)/(sz*8) {
				bits = alignTo(bits, sz*8)
			}

			mem.Offset = alignDown(bits/8, sz)
			mem.BitOffset = bits % (sz * 8)
			bits += mem.BitWidth
		} else {
			if !ty.IsPacked {
				bits = alignTo(bits, mem.Align*8)
			}
			mem.Offset = bits / 8
			bits += mem.Ty.Size * 8
		}

		if mem.Name == nil && mem.IsBitfield {
			continue
		}

		if !ty.IsPacked && ty.Align < mem.Align {
			ty.Align = mem.Align
		}

		cur.Next = mem
		cur = cur.Next
	}

	cur.Next = nil
	ty.Members = head.Next
	ty.Size = alignTo(bits, ty.Align*8) / 8
	return ty
}

// union-decl = struct-union-decl
func (p *parser) unionDecl(rest **Token, kw *Token, tok *Token) *CType {
	noList := false
	ty := p.structUnionDecl(rest, kw, tok, &noList)
	ty.Kind = TY_UNION

	if noList {
		return ty
	}

	// If union, we don't have to assign offsets because they
	// are already initialized to zero. We need to compute the
	// alignment and the size though.
	head := Member{}
	cur := &head
	for mem := ty.Members; mem != nil; mem = mem.Next {
		sz := mem.Ty.Size
		if mem.IsBitfield {
			sz = alignTo(mem.BitWidth, 8) / 8
		}

		ty.Size = max(ty.Size, sz)

		if mem.Name == nil && mem.IsBitfield {
			continue
		}

		if ty.Align < mem.Align {
			ty.Align = mem.Align
		}

		cur.Next = mem
		cur = cur.Next
	}

	cur.Next = nil
	ty.Members = head.Next
	ty.Size = alignTo(ty.Size, ty.Align)
	return ty
}

// func-params = ("void" | param ("," param)* ("," "...")?)? ")"
// param       = declspec declarator
func (p *parser) funcParams(rest **Token, tok *Token, ty *CType) *CType {
	if tok.isEqual("void") && consume(rest, tok.Next, ")") {
		return funcType(ty)
	}

	head := Obj{}
	cur := &head
	fnTy := funcType(ty)

	p.enterScope()
	fnTy.Scopes = p.scope

	for commaList(rest, &tok, ")", cur != &head) {
		if tok.isEqual("...") {
			fnTy.IsVariadic = true
			*rest = skip(tok.Next, ")")
			break
		}

		var name *Token
		ty2 := p.declspec(&tok, tok, nil)
		ty2 = p.declarator(&tok, tok, ty2, &name)

		switch ty2.Kind {
		case TY_ARRAY, TY_VLA:
			// "array of T" is converted to "pointer to T" only in the parameter
			// context. For example, *argv[] is converted to **argv by this.
			ty2 = pointerTo(ty2.Base)
		case TY_FUNC:
			// Likewise, a function is converted to a pointer to a function
			// only in the parameter context.
			ty2 = pointerTo(ty2)
		}

		varName := ""
		if name != nil {
			varName = name.getIdent()
		}
		cur.ParamNext = p.newLocalVar(varName, ty2)
		cur.ParamNext.Tok = name
		cur = cur.ParamNext
	}

	if cur == &head && !fnTy.IsVariadic {
		fnTy.IsOldStyle = true
	}

	p.leaveScope()

	fnTy.ParamList = head.ParamNext
	return fnTy
}

// array-dimensions = ("static" | "restrict")* const-expr? "]" type-suffix
func (p *parser) arrayDimensions(rest **Token, tok *Token, ty *CType) *CType {
	for tok.isEqual("static") || tok.isEqual("const") || tok.isEqual("volatile") ||
		tok.isEqual("restrict") || tok.isEqual("__restrict") || tok.isEqual("__restrict__") {
		tok = tok.Next
	}

	if consume(&tok, tok, "]") || (tok.isEqual("*") && consume(&tok, tok.Next, "]")) {
		if tok.isEqual("[") {
			ty = p.arrayDimensions(&tok, tok.Next, ty)
		}
		*rest = tok
		return arrayOf(ty, -1)
	}

	expr := p.assign(&tok, tok)
	expr.addType()
	tok = skip(tok, "]")
	if tok.isEqual("[") {
		ty = p.arrayDimensions(&tok, tok.Next, ty)
	}
	*rest = tok

	arrayLength := int64(0)
	if ty.Kind != TY_VLA && p.isConstExpr(expr, &arrayLength) {
		return arrayOf(ty, arrayLength)
	}

	if p.scope.isFile() {
		errorTok(tok, "variably-modified type at file scope")
	}
	return vlaOf(ty, expr)
}

/*
 * type-suffix = "(" func-params
 *	           | "[" array-dimensions
 *	           | ε
 */
func (p *parser) typeSuffix(rest **Token, tok *Token, ty *CType) *CType {
	if tok.isEqual("(") {
		return p.funcParams(rest, tok.Next, ty)
	}

	if tok.isEqual("[") {
		return p.arrayDimensions(rest, tok.Next, ty)
	}

	*rest = tok
	return ty
}

// pointers = ("*" ("const" | "volatile" | "restrict")*)*
func (p *parser) pointers(rest **Token, tok *Token, ty *CType) *CType {
	for consume(&tok, tok, "*") {
		ty = pointerTo(ty)

		for tok.isEqual("const") || tok.isEqual("volatile") || tok.isEqual("restrict") ||
			tok.isEqual("__restrict") || tok.isEqual("__restrict__") || tok.isEqual("__attribute__") {
			if tok.isEqual("__attribute__") {
				tok = p.attributeList(tok, nil)
				continue
			}
			if tok.isEqual("const") {
				ty = ty.qualified()
			}
			tok = tok.Next
		}
	}

	*rest = tok
	return ty
}

// startsParams reports whether the tokens after "(" in a declarator
// begin a parameter list rather than a nested declarator.
func (p *parser) startsParams(tok *Token) bool {
	return p.isTypename(tok) || tok.isEqual(")") || tok.isEqual("...") || isStdAttribute(tok)
}

// declarator = pointers ("(" ident ")" | "(" declarator ")" | ident) type-suffix
func (p *parser) declarator(rest **Token, tok *Token, ty *CType, name **Token) *CType {
	ty = p.pointers(&tok, tok, ty)

	if tok.isEqual("(") && !p.startsParams(tok.Next) {
		start := tok.Next
		ty = p.typeSuffix(rest, skipParen(start), ty)
		var t *Token
		return p.declarator(&t, start, ty, name)
	}

	if tok.Kind == TK_IDENT {
		*name = tok
		tok = tok.Next
	}
	tok = skipStdAttributes(tok)

	return p.typeSuffix(rest, tok, ty)
}

// abstract-declarator = pointers ("(" abstract-declarator ")")? type-suffix
//
// namePos receives the token before which a declarator identifier
// would be written.
func (p *parser) abstractDeclarator(rest **Token, tok *Token, ty *CType, namePos **Token) *CType {
	ty = p.pointers(&tok, tok, ty)

	if tok.isEqual("(") && !p.startsParams(tok.Next) {
		start := tok.Next
		ty = p.typeSuffix(rest, skipParen(start), ty)
		var t *Token
		return p.abstractDeclarator(&t, start, ty, namePos)
	}

	if namePos != nil {
		*namePos = tok
	}
	return p.typeSuffix(rest, tok, ty)
}

func (tok *Token) isEnd() bool {
	return tok.isEqual("}") || (tok.isEqual(",") && tok.Next.isEqual("}"))
}

// type-name = declspec abstract-declarator
func (p *parser) typeName(rest **Token, tok *Token) *CType {
	ty := p.declspec(&tok, tok, nil)
	return p.abstractDeclarator(rest, tok, ty, nil)
}

// declaration = declspec (declarator ("=" expr)? ("," declarator ("=" expr)?)*)? ";"
func (p *parser) declaration(rest **Token, tok *Token, basety *CType, attr *VarAttr, specs Span, rec *LocalDecl) *AstNode {
	var expr *AstNode

	first := true
	for ; commaList(rest, &tok, ";", !first); first = false {
		start := tok
		var name *Token
		ty := p.declarator(&tok, tok, basety, &name)
		tok = p.attributeList(tok, nil)
		declr := spanTo(start, tok)

		if ty.Kind == TY_FUNC || attr.IsExtern {
			if name == nil {
				errorTok(start, "declaration name omitted")
			}
			p.localExternal(name, ty, attr, specs, declr, rec)
			if tok.isEqual("=") {
				errorTok(tok, "'extern' declaration cannot have an initializer")
			}
			continue
		}
		if ty.Kind == TY_VOID {
			errorTok(tok, "variable declared as void")
		}
		if name == nil {
			errorTok(start, "variable name omitted")
		}

		variable := p.newLocalVar(name.getIdent(), ty)
		variable.Tok = name
		variable.IsStatic = attr.IsStatic
		variable.IsConstexpr = attr.IsConstexpr
		variable.IsTls = attr.IsTls
		if attr.Align > 0 {
			variable.Align = attr.Align
		}

		if attr.IsStatic || attr.IsTls {
			if ty.isVariablyModified() {
				errorTok(tok, "variable length arrays cannot be 'static'")
			}
			variable.IsDefinition = true
			if tok.isEqual("=") {
				p.globalVarInitializer(&tok, tok.Next, variable)
			}
			continue
		}

		if ty.Kind == TY_VLA {
			if tok.isEqual("=") {
				errorTok(tok, "variable-sized object may not be initialized")
			}
			continue
		}

		if tok.isEqual("=") {
			init := p.localVarInitializer(&tok, tok.Next, variable)
			chainExpr(&expr, init)
		} else if attr.IsConstexpr {
			errorTok(tok, "constexpr object requires an initializer")
		}

		if variable.Ty.complete().Size < 0 {
			errorTok(name, "variable has incomplete type")
		}
		if variable.Ty.Kind == TY_VOID {
			errorTok(name, "variable declared as void")
		}
	}

	return expr
}

// localExternal declares a block-scope function prototype or extern
// object. Such declarations can be repeated at file scope.
func (p *parser) localExternal(name *Token, ty *CType, attr *VarAttr, specs, declr Span, rec *LocalDecl) {
	v := p.newVar(name.getIdent(), ty)
	v.Tok = name
	v.IsLocal = true
	v.IsExtern = attr.IsExtern
	v.IsFunction = ty.Kind == TY_FUNC
	v.IsInline = attr.IsInline

	d := &LocalDecl{
		Kind:  DeclPrototype,
		Span:  Span{Begin: specs.Begin, End: declr.End},
		Names: []string{v.Name},
		Text:  spanText(specs) + " " + spanText(declr) + ";",
		scope: p.scope,
		seq:   p.declSeq,
	}
	p.declSeq++
	if rec != nil {
		d.Deps = append(d.Deps, rec.Deps...)
		d.Unhoistable = rec.Unhoistable
	}
	v.Decl = d
}

func (p *parser) staticAssertion(rest **Token, tok *Token) {
	tok = skip(tok, "(")
	result := p.constExpr(&tok, tok)
	if result == 0 {
		errorTok(tok, "static assertion failed")
	}

	if tok.isEqual(",") {
		if tok.Next.Kind != TK_STR {
			errorTok(tok, "expected string literal")
		}
		tok = tok.Next.Next
	}

	tok = skip(tok, ")")
	*rest = skip(tok, ";")
}

func (p *parser) parseTypeDef(rest **Token, tok *Token, basety *CType, rec *LocalDecl) {
	first := true

	for ; commaList(rest, &tok, ";", !first); first = false {
		var name *Token
		ty := p.declarator(&tok, tok, basety, &name)
		tok = p.attributeList(tok, nil)
		if name == nil {
			errorTok(tok, "typedef name omitted")
		}
		vs := p.pushScope(name.getIdent())
		vs.TypeDef = ty
		vs.Decl = rec
		if rec != nil {
			rec.Names = append(rec.Names, name.getText())
		}
	}
}

func (p *parser) findFunction(name string) *Obj {
	vs := p.fileScope.Vars[name]
	if vs != nil && vs.Variable != nil && vs.Variable.IsFunction {
		return vs.Variable
	}
	return nil
}

func (p *parser) funcPrototype(name *Token, ty *CType, attr *VarAttr) *Obj {
	if name == nil {
		errorTok(p.ext.Begin, "function name omitted")
	}
	nameString := name.getIdent()

	fn := p.findFunction(nameString)
	if fn == nil {
		fn = p.newGlobalVar(nameString, ty)
		fn.Tok = name
		fn.IsFunction = true
		fn.IsStatic = attr.IsStatic || (attr.IsInline && !attr.IsExtern)
		fn.IsInline = attr.IsInline
	} else if !fn.IsStatic && attr.IsStatic && !fn.IsImplicit {
		errorTok(name, "static declaration follows a non-static declaration")
	}

	return fn
}

func (p *parser) funcDefinition(rest **Token, tok *Token, name *Token, ty *CType, attr *VarAttr) *Obj {
	fn := p.funcPrototype(name, ty, attr)

	if fn.IsDefinition {
		errorTok(name, "redefinition of %s", fn.Name)
	}
	fn.IsDefinition = true
	fn.Ty = ty

	ctx := &funcContext{fn: fn}
	p.fn = ctx

	if ty.Scopes != nil {
		p.scope = ty.Scopes
		p.scope.Func = ctx
	} else {
		p.enterScope()
		ty.Scopes = p.scope
	}

	fn.Body = p.compoundStmt(rest, tok.Next)

	p.leaveScope()
	p.resolveGotoLabels(ctx)
	p.fn = nil
	return fn
}

func (p *parser) globalDeclaration(tok *Token, basety *CType, attr *VarAttr, specs Span) *Token {
	first := true

	for ; commaList(&tok, &tok, ";", !first); first = false {
		start := tok
		var name *Token
		ty := p.declarator(&tok, tok, basety, &name)
		declr := spanTo(start, tok)
		tok = p.attributeList(tok, nil)

		if ty.Kind == TY_FUNC {
			if tok.isEqual("{") {
				if !first {
					errorTok(tok, "function definition is not allowed here")
				}
				fn := p.funcDefinition(&tok, tok, name, ty, attr)
				p.recordDecl(fn, specs, declr)
				return tok
			}
			fn := p.funcPrototype(name, ty, attr)
			p.recordDecl(fn, specs, declr)
			continue
		}

		if name == nil {
			errorTok(start, "variable name omitted")
		}

		variable := p.newGlobalVar(name.getIdent(), ty)
		variable.Tok = name
		variable.IsDefinition = !attr.IsExtern
		variable.IsExtern = attr.IsExtern
		variable.IsStatic = attr.IsStatic
		variable.IsTls = attr.IsTls
		variable.IsConstexpr = attr.IsConstexpr
		p.recordDecl(variable, specs, declr)
		if attr.Align > 0 {
			variable.Align = attr.Align
		}
		if tok.isEqual("=") {
			p.globalVarInitializer(&tok, tok.Next, variable)
		} else if !attr.IsExtern && !attr.IsTls {
			variable.IsTentative = true
		}
	}

	return tok
}

// recordDecl remembers where a file-scope entity was first declared.
func (p *parser) recordDecl(v *Obj, specs, declr Span) {
	if v.Ext != p.ext || v.DeclSpec.valid() {
		return
	}
	v.DeclSpec = specs
	v.Declarator = declr
}

// Remove redundant tentative definitions.
func (p *parser) scanGlobals() {
	head := Obj{}
	cur := &head

	for v := p.globals; v != nil; v = v.Next {
		if !v.IsTentative {
			cur.Next = v
			cur = cur.Next
			continue
		}

		// Find another definition of the same identifier.
		v2 := p.globals
		for ; v2 != nil; v2 = v2.Next {
			if v != v2 && v2.IsDefinition && v.Name == v2.Name {
				break
			}
		}

		// If there's another definition, the tentative definition
		// is redundant
		if v2 == nil {
			cur.Next = v
			cur = cur.Next
		}
	}

	cur.Next = nil
	p.globals = head.Next
}

// program = (function-definition | global-variable)*
func (p *parser) parse(tok *Token) *Obj {
	for tok.Kind != TK_EOF {
		if err := p.ctx.Err(); err != nil {
			errorTok(tok, "%v", err)
		}

		p.ext = &extDecl{Begin: tok}
		p.exts = append(p.exts, p.ext)

		tok = skipStdAttributes(tok)
		if consume(&tok, tok, ";") {
			continue
		}

		if tok.isEqual("_Static_assert") || tok.isEqual("static_assert") {
			p.staticAssertion(&tok, tok.Next)
			continue
		}

		if tok.Kind == TK_KEYWORD && (tok.isEqual("asm") || tok.isEqual("__asm") || tok.isEqual("__asm__")) {
			p.asmStmt(&tok, tok)
			tok = skip(tok, ";")
			continue
		}

		start := tok
		attr := VarAttr{}
		basety := p.declspec(&tok, tok, &attr)
		specs := spanTo(start, tok)

		// Typedef
		if attr.IsTypeDef {
			p.parseTypeDef(&tok, tok, basety, nil)
			continue
		}

		tok = p.globalDeclaration(tok, basety, &attr, specs)
	}

	// Remove redundant tentative definitions.
	p.scanGlobals()

	p.cfg.logger.Debug("parsed translation unit",
		slog.Int("external_declarations", len(p.exts)),
		slog.Int("unnamed_functions", len(p.lits)))
	return p.globals
}

// spanText returns the source text of s. Spans written directly in a
// file are copied verbatim; spans produced by macro expansion are
// rebuilt from their tokens.
func spanText(s Span) string {
	if !s.valid() {
		return ""
	}
	b, e := s.Begin, s.End
	if b.Origin == nil && e.Origin == nil && !b.macroArg && b.File == e.File && b.Location <= e.Location {
		return string(b.File.Contents[b.Location:e.end()])
	}
	return joinTokens(b, e.Next)
}
