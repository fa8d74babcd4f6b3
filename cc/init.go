package cc

// This struct represents a variable initializer. Since initializers
// can be nested (e.g. `int x[2][2] = {{1, 2}, {3, 4}}`), this struct
// is a tree data structure.
type Initializer struct {
	Ty         *CType
	Tok        *Token
	IsFlexible bool

	// If it's not an aggregate type and has an initializer,
	// `expr` has an initialization expression.
	Expr *AstNode

	// If it's an initializer for an aggregate type (e.g. array or struct),
	// `children` has initializers for its children.
	Children []*Initializer

	// Only one member can be initialized for a union.
	// `mem` is used to clarify which member is initialized.
	Mem *Member
}

// For local variable initializer.
type InitDesg struct {
	Next     *InitDesg
	Idx      int
	Member   *Member
	Variable *Obj
}

func newInitializer(ty *CType, isFlexible bool) *Initializer {
	init := &Initializer{Ty: ty}

	if ty.Kind == TY_ARRAY {
		if isFlexible && ty.Size < 0 {
			init.IsFlexible = true
			return init
		}

		init.Children = make([]*Initializer, max(ty.ArrayLength, 0))
		for i := range init.Children {
			init.Children[i] = newInitializer(ty.Base, false)
		}
		return init
	}

	if ty.Kind == TY_STRUCT || ty.Kind == TY_UNION {
		ty = ty.complete()

		// Count the number of struct members.
		n := 0
		for mem := ty.Members; mem != nil; mem = mem.Next {
			n = max(n, mem.Index+1)
		}

		init.Children = make([]*Initializer, n)

		for mem := ty.Members; mem != nil; mem = mem.Next {
			if isFlexible && ty.IsFlexible && mem.Next == nil {
				child := &Initializer{Ty: mem.Ty, IsFlexible: true}
				init.Children[mem.Index] = child
			} else {
				init.Children[mem.Index] = newInitializer(mem.Ty, false)
			}
		}
		return init
	}

	return init
}

func (p *parser) skipExcessElement(tok *Token) *Token {
	if tok.isEqual("{") {
		tok = p.skipExcessElement(tok.Next)
		return skip(tok, "}")
	}

	p.assign(&tok, tok)
	return tok
}

// string-initializer = string-literal
func (p *parser) stringInitializer(rest **Token, tok *Token, init *Initializer) {
	if init.IsFlexible {
		*init = *newInitializer(arrayOf(init.Ty.Base, tok.Ty.ArrayLength), false)
	}

	n := min(init.Ty.ArrayLength, tok.Ty.ArrayLength)

	if init.Ty.Base.Size == 1 {
		str := tok.StringLiteral
		for i := int64(0); i < n && i < int64(len(str)); i++ {
			init.Children[i].Expr = newNum(int64(int8(str[i])), tok)
		}
	}

	*rest = tok.Next
}

// array-designator = "[" const-expr "]"
//
// C99 added the designated initializer to the language, which allows
// programmers to move the "cursor" of an initializer to any element.
// The syntax looks like this:
//
//	int x[10] = { 1, 2, [5]=3, 4, 5, 6, 7 };
//
// `[5]` moves the cursor to the 5th element, so the 5th element of x
// is set to 3. Initialization then continues forward in order, so
// 6th, 7th, 8th and 9th elements are initialized with 4, 5, 6 and 7,
// respectively. Unspecified elements (in this case, 3rd and 4th
// elements) are initialized with zero.
//
// Nesting is allowed, so the following initializer is valid:
//
//	int x[5][10] = { [5][8]=1, 2, 3 };
//
// It sets x[5][8], x[5][9] and x[6][0] to 1, 2 and 3, respectively.
//
// Use `.fieldname` to move the cursor for a struct initializer. E.g.
//
//	struct { int a, b, c; } x = { .c=5 };
//
// The above initializer sets x.c to 5.
func (p *parser) arrayDesignator(rest **Token, tok *Token, ty *CType, begin, end *int64) {
	*begin = p.constExpr(&tok, tok.Next)
	if *begin >= ty.ArrayLength {
		errorTok(tok, "array designator index exceeds array bounds")
	}

	if tok.isEqual("...") {
		*end = p.constExpr(&tok, tok.Next)
		if *end >= ty.ArrayLength {
			errorTok(tok, "array designator index exceeds array bounds")
		}
		if *end < *begin {
			errorTok(tok, "array designator range [%d, %d] is empty", *begin, *end)
		}
	} else {
		*end = *begin
	}

	*rest = skip(tok, "]")
}

// struct-designator = "." ident
func (p *parser) structDesignator(rest **Token, tok *Token, ty *CType) *Member {
	start := tok
	tok = skip(tok, ".")
	if tok.Kind != TK_IDENT {
		errorTok(tok, "expected a field designator")
	}

	for mem := ty.complete().Members; mem != nil; mem = mem.Next {
		// Anonymous struct member
		if (mem.Ty.Kind == TY_STRUCT || mem.Ty.Kind == TY_UNION) && mem.Name == nil {
			if getStructMember(mem.Ty.complete(), tok) != nil {
				*rest = start
				return mem
			}
			continue
		}

		// Regular struct member
		if mem.Name != nil && mem.Name.getText() == tok.getText() {
			*rest = tok.Next
			return mem
		}
	}

	errorTok(tok, "struct has no such member")
	return nil
}

// designation = ("[" const-expr "]" | "." ident)* "="? initializer
func (p *parser) designation(rest **Token, tok *Token, init *Initializer) {
	if tok.isEqual("[") {
		if init.Ty.Kind != TY_ARRAY {
			errorTok(tok, "array index in non-array initializer")
		}

		var begin, end int64
		p.arrayDesignator(&tok, tok, init.Ty, &begin, &end)

		var tok2 *Token
		for i := begin; i <= end; i++ {
			p.designation(&tok2, tok, init.Children[i])
		}
		p.arrayInitializer2(rest, tok2, init, end+1)
		return
	}

	if tok.isEqual(".") && init.Ty.Kind == TY_STRUCT {
		mem := p.structDesignator(&tok, tok, init.Ty)
		p.designation(&tok, tok, init.Children[mem.Index])
		init.Expr = nil
		p.structInitializer2(rest, tok, init, mem.Next)
		return
	}

	if tok.isEqual(".") && init.Ty.Kind == TY_UNION {
		mem := p.structDesignator(&tok, tok, init.Ty)
		init.Mem = mem
		p.designation(rest, tok, init.Children[mem.Index])
		return
	}

	if tok.isEqual(".") {
		errorTok(tok, "field name not in struct or union initializer")
	}

	if tok.isEqual("=") {
		tok = tok.Next
	}

	p.initializer2(rest, tok, init)
}

// An array length can be omitted if an array has an initializer
// (e.g. `int x[] = {1,2,3}`). If it's omitted, count the number
// of initializer elements.
func (p *parser) countArrayInitElements(tok *Token, ty *CType) int64 {
	first := true
	dummy := newInitializer(ty.Base, true)

	var i, n int64

	for ; commaList(&tok, &tok, "}", !first); first = false {
		if tok.isEqual("[") {
			i = p.constExpr(&tok, tok.Next)
			if tok.isEqual("...") {
				i = p.constExpr(&tok, tok.Next)
			}
			tok = skip(tok, "]")
			p.designation(&tok, tok, dummy)
		} else {
			p.initializer2(&tok, tok, dummy)
		}

		i++
		n = max(n, i)
	}
	return n
}

// array-initializer1 = "{" initializer ("," initializer)* ","? "}"
func (p *parser) arrayInitializer1(rest **Token, tok *Token, init *Initializer) {
	tok = skip(tok, "{")

	if init.IsFlexible {
		n := p.countArrayInitElements(tok, init.Ty)
		*init = *newInitializer(arrayOf(init.Ty.Base, n), false)
	}

	first := true
	for i := int64(0); commaList(rest, &tok, "}", !first); i++ {
		first = false

		if tok.isEqual("[") {
			var begin, end int64
			p.arrayDesignator(&tok, tok, init.Ty, &begin, &end)

			var tok2 *Token
			for j := begin; j <= end; j++ {
				p.designation(&tok2, tok, init.Children[j])
			}
			tok = tok2
			i = end
			continue
		}

		if i < init.Ty.ArrayLength {
			p.initializer2(&tok, tok, init.Children[i])
		} else {
			tok = p.skipExcessElement(tok)
		}
	}
}

// array-initializer2 = initializer ("," initializer)*
func (p *parser) arrayInitializer2(rest **Token, tok *Token, init *Initializer, i int64) {
	if init.IsFlexible {
		n := p.countArrayInitElements(tok, init.Ty)
		*init = *newInitializer(arrayOf(init.Ty.Base, n), false)
	}

	for ; i < init.Ty.ArrayLength && !tok.isEnd(); i++ {
		start := tok
		if i > 0 {
			tok = skip(tok, ",")
		}

		if tok.isEqual("[") || tok.isEqual(".") {
			*rest = start
			return
		}

		p.initializer2(&tok, tok, init.Children[i])
	}
	*rest = tok
}

// struct-initializer1 = "{" initializer ("," initializer)* ","? "}"
func (p *parser) structInitializer1(rest **Token, tok *Token, init *Initializer) {
	tok = skip(tok, "{")

	mem := init.Ty.complete().Members
	first := true

	for ; commaList(rest, &tok, "}", !first); first = false {
		if tok.isEqual(".") {
			mem = p.structDesignator(&tok, tok, init.Ty)
			p.designation(&tok, tok, init.Children[mem.Index])
			mem = mem.Next
			continue
		}

		if mem != nil {
			p.initializer2(&tok, tok, init.Children[mem.Index])
			mem = mem.Next
		} else {
			tok = p.skipExcessElement(tok)
		}
	}
}

// struct-initializer2 = initializer ("," initializer)*
func (p *parser) structInitializer2(rest **Token, tok *Token, init *Initializer, mem *Member) {
	first := true

	for ; mem != nil && !tok.isEnd(); mem = mem.Next {
		start := tok

		if !first {
			tok = skip(tok, ",")
		}
		first = false

		if tok.isEqual("[") || tok.isEqual(".") {
			*rest = start
			return
		}

		p.initializer2(&tok, tok, init.Children[mem.Index])
	}
	*rest = tok
}

func (p *parser) unionInitializer(rest **Token, tok *Token, init *Initializer) {
	ty := init.Ty.complete()

	// Unlike structs, union initializers take only one initializer,
	// and that initializes the first union member by default.
	// You can initialize other member using a designated initializer.
	if tok.isEqual("{") && tok.Next.isEqual(".") {
		mem := p.structDesignator(&tok, tok.Next, ty)
		init.Mem = mem
		p.designation(&tok, tok, init.Children[mem.Index])
		consume(&tok, tok, ",")
		*rest = skip(tok, "}")
		return
	}

	if ty.Members == nil {
		if tok.isEqual("{") {
			*rest = skip(tok.Next, "}")
			return
		}
		errorTok(tok, "initializer for an empty union")
	}

	init.Mem = ty.Members

	if tok.isEqual("{") {
		if tok.Next.isEqual("}") {
			*rest = tok.Next.Next
			return
		}
		p.initializer2(&tok, tok.Next, init.Children[ty.Members.Index])
		consume(&tok, tok, ",")
		*rest = skip(tok, "}")
	} else {
		p.initializer2(rest, tok, init.Children[ty.Members.Index])
	}
}

// initializer = string-initializer | array-initializer
//             | struct-initializer | union-initializer
//             | assign
func (p *parser) initializer2(rest **Token, tok *Token, init *Initializer) {
	init.Tok = tok

	if init.Ty.Kind == TY_ARRAY && tok.Kind == TK_STR {
		p.stringInitializer(rest, tok, init)
		return
	}

	if init.Ty.Kind == TY_ARRAY {
		if tok.isEqual("{") {
			p.arrayInitializer1(rest, tok, init)
		} else {
			p.arrayInitializer2(rest, tok, init, 0)
		}
		return
	}

	if init.Ty.Kind == TY_STRUCT {
		if tok.isEqual("{") {
			p.structInitializer1(rest, tok, init)
			return
		}

		// A struct can be initialized with another struct. E.g.
		// `struct T x = y;` where y is a variable of type `struct T`.
		// Handle that case first.
		expr := p.assign(rest, tok)
		expr.addType()
		if expr.Ty.Kind == TY_STRUCT {
			init.Expr = expr
			return
		}

		p.structInitializer2(rest, tok, init, init.Ty.complete().Members)
		return
	}

	if init.Ty.Kind == TY_UNION {
		p.unionInitializer(rest, tok, init)
		return
	}

	if tok.isEqual("{") {
		// An initializer for a scalar variable can be surrounded by
		// braces. E.g. `int x = {3};`. Handle that case.
		if tok.Next.isEqual("}") {
			*rest = tok.Next.Next
			return
		}
		p.initializer2(&tok, tok.Next, init)
		consume(&tok, tok, ",")
		*rest = skip(tok, "}")
		return
	}

	init.Expr = p.assign(rest, tok)
}

func (p *parser) initializer(rest **Token, tok *Token, ty *CType, newTy **CType) *Initializer {
	init := newInitializer(ty, true)
	p.initializer2(rest, tok, init)

	if (ty.Kind == TY_STRUCT || ty.Kind == TY_UNION) && ty.complete().IsFlexible {
		ty = ty.complete().copy()

		mem := ty.Members
		for mem.Next != nil {
			mem = mem.Next
		}
		mem.Ty = init.Children[mem.Index].Ty
		ty.Size += mem.Ty.Size

		*newTy = ty
		return init
	}

	if ty.Kind == TY_ARRAY && ty.ArrayLength < 0 {
		*newTy = init.Ty
	} else {
		*newTy = ty
	}
	return init
}

func initDesgExpr(desg *InitDesg, tok *Token) *AstNode {
	if desg.Variable != nil {
		return newVarNode(desg.Variable, tok)
	}

	if desg.Member != nil {
		node := newUnary(ND_MEMBER, initDesgExpr(desg.Next, tok), tok)
		node.Member = desg.Member
		return node
	}

	lhs := initDesgExpr(desg.Next, tok)
	rhs := newNum(int64(desg.Idx), tok)
	return newUnary(ND_DEREF, newAdd(lhs, rhs, tok), tok)
}

func createLocalVarInit(init *Initializer, ty *CType, desg *InitDesg, tok *Token) *AstNode {
	if ty.Kind == TY_ARRAY {
		var node *AstNode
		for i := range init.Children {
			desg2 := InitDesg{Next: desg, Idx: i}
			chainExpr(&node, createLocalVarInit(init.Children[i], ty.Base, &desg2, tok))
		}
		return node
	}

	if ty.Kind == TY_STRUCT && init.Expr == nil {
		var node *AstNode
		for mem := ty.complete().Members; mem != nil; mem = mem.Next {
			desg2 := InitDesg{Next: desg, Member: mem}
			chainExpr(&node, createLocalVarInit(init.Children[mem.Index], mem.Ty, &desg2, tok))
		}
		return node
	}

	if ty.Kind == TY_UNION && init.Expr == nil {
		mem := init.Mem
		if mem == nil {
			mem = ty.complete().Members
		}
		if mem == nil {
			return nil
		}
		desg2 := InitDesg{Next: desg, Member: mem}
		return createLocalVarInit(init.Children[mem.Index], mem.Ty, &desg2, tok)
	}

	if init.Expr == nil {
		return nil
	}

	lhs := initDesgExpr(desg, tok)
	return newBinary(ND_ASSIGN, lhs, init.Expr, tok)
}

// A variable definition with an initializer is a shorthand notation
// for a variable definition followed by assignments. This function
// generates assignment expressions for an initializer. For example,
// `int x[2][2] = {{6, 7}, {8, 9}}` is converted to the following
// expressions:
//
//	x[0][0] = 6;
//	x[0][1] = 7;
//	x[1][0] = 8;
//	x[1][1] = 9;
func (p *parser) localVarInitializer(rest **Token, tok *Token, v *Obj) *AstNode {
	init := p.initializer(rest, tok, v.Ty, &v.Ty)
	if v.IsConstexpr {
		p.checkConstInit(init)
		v.init = init.Expr
	}

	desg := InitDesg{Variable: v}
	return createLocalVarInit(init, v.Ty, &desg, tok)
}

func (p *parser) globalVarInitializer(rest **Token, tok *Token, v *Obj) {
	init := p.initializer(rest, tok, v.Ty, &v.Ty)
	p.checkConstInit(init)
	if v.IsConstexpr {
		v.init = init.Expr
	}
}

// checkConstInit verifies that the initializer of an object with static
// storage duration consists of constant expressions and address
// constants.
func (p *parser) checkConstInit(init *Initializer) {
	if init == nil {
		return
	}

	if init.Expr != nil {
		failed := false
		saved := p.evalRecover
		p.evalRecover = &failed

		init.Expr.addType()
		if init.Expr.Ty.isFloat() {
			p.evalDouble(init.Expr)
		} else {
			var label *string
			p.eval2(init.Expr, &label)
		}

		p.evalRecover = saved
		if failed {
			errorTok(init.Expr.Tok, "initializer element is not a compile-time constant")
		}
		return
	}

	if init.Ty.Kind == TY_UNION {
		if init.Mem != nil {
			p.checkConstInit(init.Children[init.Mem.Index])
		}
		return
	}

	for _, child := range init.Children {
		p.checkConstInit(child)
	}
}
