package cc

// nameUse is one resolution of an identifier or tag.
type nameUse struct {
	tok *Token

	// Scope the name was found in.
	sc *Scope

	// Exactly one of vs and tag is set.
	vs  *VarScope
	tag *CType

	// The use appears in an unevaluated operand.
	uneval bool
}

func (u *nameUse) object() *Obj {
	if u.vs == nil {
		return nil
	}
	return u.vs.Variable
}

// decl returns the block-scope declaration that makes the name visible,
// if the name can be declared again at file scope.
func (u *nameUse) decl() *LocalDecl {
	if u.tag != nil {
		return u.tag.Decl
	}
	if u.vs.Variable != nil {
		return u.vs.Variable.Decl
	}
	return u.vs.Decl
}

type pendingRef struct {
	ref *objRef
	lit *FuncLit
	use *nameUse
}

// unevalFrame collects references to enclosing objects made inside an
// operand of sizeof, typeof, _Alignof or a _Generic controlling
// expression. They are accepted once the operand's type is known not to
// be variably modified.
type unevalFrame struct {
	pending []pendingRef
}

func (p *parser) beginUneval() {
	p.uneval = append(p.uneval, &unevalFrame{})
}

func (p *parser) endUneval(variablyModified bool) {
	n := len(p.uneval)
	f := p.uneval[n-1]
	p.uneval = p.uneval[:n-1]

	for _, r := range f.pending {
		switch {
		case variablyModified:
			p.captureViolation(r.use, r.ref.Obj)
		case len(p.uneval) > 0:
			top := p.uneval[len(p.uneval)-1]
			top.pending = append(top.pending, r)
		default:
			r.lit.addRef(r.ref)
		}
	}
}

func (l *FuncLit) addRef(r *objRef) {
	for _, x := range l.Refs {
		if x.Tok == r.Tok {
			return
		}
	}
	l.Refs = append(l.Refs, r)
}

// noteName is called for every resolved identifier and tag.
func (p *parser) noteName(u *nameUse) {
	u.uneval = len(p.uneval) > 0
	if p.useLog != nil {
		*p.useLog = append(*p.useLog, u)
	}

	if !u.sc.isFile() && len(p.declStack) > 0 {
		d := u.decl()
		o := u.object()
		for _, rec := range p.declStack {
			rec.addDep(d)
			if o != nil && o.isObject() && rec.Unhoistable == nil && u.sc.encloses(rec.scope) {
				rec.Unhoistable = u.tok
			}
		}
	}

	if p.fn != nil {
		p.checkUse(p.fn, u, false)
	}
}

// checkUse decides whether the function of c may refer to the name.
// Objects of an enclosing function are only accepted in unevaluated
// operands. Other block-scope names are accepted and recorded, so that
// lowering can repeat their declarations at file scope.
func (p *parser) checkUse(c *funcContext, u *nameUse, replay bool) {
	if u.sc.isFile() {
		o := u.object()
		if o != nil && c.lit != nil && o.Ext != nil && o.Ext == c.lit.ext {
			c.lit.addForward(o)
		}
		return
	}

	owner := u.sc.Func
	var crossed []*FuncLit
	x := c
	for x != nil && x != owner {
		if x.lit != nil {
			crossed = append(crossed, x.lit)
		}
		x = x.outer
	}
	if x != owner || len(crossed) == 0 {
		return
	}

	if o := u.object(); o != nil && o.isObject() {
		if !u.uneval {
			p.captureViolation(u, o)
			return
		}

		ref := &objRef{Tok: u.tok, Obj: o}
		if replay || len(p.uneval) == 0 {
			crossed[0].addRef(ref)
		} else {
			top := p.uneval[len(p.uneval)-1]
			top.pending = append(top.pending, pendingRef{ref: ref, lit: crossed[0], use: u})
		}

		// The reference is rewritten to an expression of the same type.
		for _, l := range crossed {
			for _, d := range typeDeps(o.Ty) {
				l.addDep(d)
			}
		}
		return
	}

	d := u.decl()
	if d == nil {
		return
	}
	if bad := firstUnhoistable(d, map[*LocalDecl]bool{}); bad != nil {
		p.report(newDiagnostic(SeverityError, ErrCapture, CodeCapture, u.tok,
			"'%s' depends on an object of the enclosing function", u.tok.getText()).
			note(bad.Unhoistable, "'%s' used here", bad.Unhoistable.getText()))
		return
	}
	for _, l := range crossed {
		l.addDep(d)
	}
}

// firstUnhoistable returns a declaration reachable from d that refers to
// an object of the enclosing function.
func firstUnhoistable(d *LocalDecl, seen map[*LocalDecl]bool) *LocalDecl {
	d = d.emitted()
	if seen[d] {
		return nil
	}
	seen[d] = true
	if d.Unhoistable != nil {
		return d
	}
	for _, in := range d.inner {
		if in.Unhoistable != nil {
			return in
		}
	}
	for _, dep := range d.Deps {
		if bad := firstUnhoistable(dep, seen); bad != nil {
			return bad
		}
	}
	return nil
}

func (p *parser) captureViolation(u *nameUse, o *Obj) {
	d := newDiagnostic(SeverityError, ErrCapture, CodeCapture, u.tok,
		"unnamed function cannot use '%s' of the enclosing function", o.Name)
	if o.Tok != nil {
		d.note(o.Tok, "'%s' declared here", o.Name)
	}
	p.report(d)
}

// typeDeps returns the block-scope declarations needed to spell ty.
func typeDeps(ty *CType) []*LocalDecl {
	var deps []*LocalDecl
	seen := map[*CType]bool{}

	var walk func(t *CType)
	walk = func(t *CType) {
		if t == nil || seen[t] {
			return
		}
		seen[t] = true

		if t.AliasDecl != nil {
			deps = append(deps, t.AliasDecl)
			return
		}
		if t.Alias != nil {
			return
		}
		if t.Decl != nil && t.Tag != nil {
			deps = append(deps, t.Decl)
			return
		}
		if t.Kind == TY_STRUCT || t.Kind == TY_UNION {
			for mem := t.complete().Members; mem != nil; mem = mem.Next {
				walk(mem.Ty)
			}
		}

		walk(t.Base)
		walk(t.ReturnType)
		for param := t.ParamList; param != nil; param = param.ParamNext {
			walk(param.Ty)
		}
	}

	walk(ty)
	return deps
}

// beginDecl starts recording a block-scope declaration. Nothing is
// recorded at file scope.
func (p *parser) beginDecl(kind LocalDeclKind, tok *Token) *LocalDecl {
	if p.scope.isFile() {
		return nil
	}

	d := &LocalDecl{Kind: kind, Span: Span{Begin: tok}, scope: p.scope, seq: p.declSeq}
	p.declSeq++

	if n := len(p.declStack); n > 0 {
		outer := p.declStack[n-1]
		d.Container = outer
		outer.inner = append(outer.inner, d)
	}
	p.declStack = append(p.declStack, d)
	return d
}

func (p *parser) endDecl(d *LocalDecl, end *Token) {
	if d == nil {
		return
	}

	n := len(p.declStack)
	if n == 0 || p.declStack[n-1] != d {
		panic("cc: unbalanced declaration records")
	}
	p.declStack = p.declStack[:n-1]
	d.Span.End = end

	// An object declaration is not repeated; the tags it defines are
	// repeated on their own.
	if d.Kind == declObject {
		for _, in := range d.inner {
			in.Container = nil
		}
	}
}
