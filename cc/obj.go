package cc

// Variable or function
type Obj struct {
	Next    *Obj
	Name    string // Variable name
	Ty      *CType // Type
	Tok     *Token // Declaring identifier
	IsLocal bool   // local or global/function
	Align   int64  // alignment

	// Local variable
	ParamNext *Obj

	// Global variable or function
	IsFunction   bool
	IsDefinition bool
	IsStatic     bool
	IsExtern     bool
	IsTentative  bool
	IsTls        bool
	IsConstexpr  bool
	IsImplicit   bool // implicitly declared by a call

	// Function
	IsInline bool
	Body     *AstNode

	// Value of a scalar constexpr object.
	init *AstNode

	// Set for the functions synthesized from unnamed function expressions.
	FuncLit *FuncLit

	// Where the object was first declared at file scope: the enclosing
	// external declaration and the source of its declaration.
	Ext        *extDecl
	DeclSpec   Span
	Declarator Span

	// Block-scope declaration that can be repeated at file scope
	// (prototypes and extern objects).
	Decl *LocalDecl
}

// isObject reports whether a block-scope o denotes storage of the
// enclosing function, as opposed to a declaration of something living
// elsewhere.
func (o *Obj) isObject() bool {
	return o.IsLocal && !o.IsFunction && !o.IsExtern
}

// Represents a block scope.
type Scope struct {
	Parent      *Scope
	Children    *Scope
	SiblingNext *Scope

	// Func is the function context owning the scope, nil at file scope.
	Func *funcContext

	// C has two block scopes; one is for variables/typedefs and
	// the other is for struct/union/enum tags.
	Vars map[string]*VarScope
	Tags map[string]*CType
}

func (sc *Scope) isFile() bool {
	return sc.Parent == nil
}

// encloses reports whether other is sc or nested in it.
func (sc *Scope) encloses(other *Scope) bool {
	for s := other; s != nil; s = s.Parent {
		if s == sc {
			return true
		}
	}
	return false
}

// Scope for local, global variables or typedefs
// or enum constants
type VarScope struct {
	Variable  *Obj
	TypeDef   *CType
	EnumType  *CType
	EnumValue int64

	// Typedefs and enum constants declared at block scope.
	Decl *LocalDecl
}

// Variable attributes such as typedef or extern.
type VarAttr struct {
	IsTypeDef   bool // Is a typedef
	IsStatic    bool
	IsExtern    bool
	IsInline    bool
	IsTls       bool
	IsConstexpr bool
	Align       int64
}

type LocalDeclKind uint8

const (
	DeclTag LocalDeclKind = iota
	DeclTypedef
	DeclPrototype

	// Object declarations are tracked while parsing but never repeated.
	declObject
)

// LocalDecl is a block-scope declaration that a hoisted function may need
// to see at file scope.
type LocalDecl struct {
	Kind LocalDeclKind
	Span Span

	// Ordinary identifiers and the tag the declaration introduces.
	Names []string
	Tag   string

	// Text replaces the source text of Span when set.
	Text string

	// Declarations this one refers to.
	Deps []*LocalDecl

	// Container is the enclosing declaration that is emitted in place of
	// this one, e.g. the typedef around a tag definition.
	Container *LocalDecl

	// Unhoistable is set to the offending token when the declaration
	// depends on an object of the enclosing function.
	Unhoistable *Token

	scope *Scope
	inner []*LocalDecl
	seq   int
}

func (d *LocalDecl) emitted() *LocalDecl {
	for d.Container != nil {
		d = d.Container
	}
	return d
}

func (d *LocalDecl) addDep(dep *LocalDecl) {
	if dep == nil || dep.emitted() == d.emitted() {
		return
	}
	for _, x := range d.Deps {
		if x == dep {
			return
		}
	}
	d.Deps = append(d.Deps, dep)
}

// extDecl is one external declaration of the translation unit: a
// function definition or a file-scope declaration.
type extDecl struct {
	Begin *Token
	Lits  []*FuncLit
}

// funcContext holds the per-function parser state. Unnamed functions get
// their own context chained to the enclosing one.
type funcContext struct {
	outer *funcContext
	fn    *Obj
	lit   *FuncLit

	// Lists of all goto statements and labels in the function.
	gotos  *AstNode
	labels *AstNode

	// Labels declared in nested unnamed functions.
	innerLabels []*AstNode

	// Gotos of nested unnamed functions that were not resolved there.
	crossGotos []*AstNode

	loopDepth   int
	switchDepth int

	// Points to a node representing a switch if we are parsing
	// a switch statement. Otherwise, nil.
	currentSwitch *AstNode
}

func (c *funcContext) name() string {
	if c.lit != nil {
		return c.lit.Name
	}
	return c.fn.Name
}

// FuncLit is an unnamed function expression together with the static
// function synthesized for it.
type FuncLit struct {
	Name string
	Fn   *Obj
	Ty   *CType
	Body *AstNode

	// Tokens of the whole expression, from "(" to the closing "}".
	Start *Token
	End   *Token

	// Tokens of the type name and the position where a declarator
	// identifier would be written.
	Type    Span
	NamePos *Token

	// Attribute specifiers written before the type name.
	Attr Span

	Parent   *FuncLit
	Children []*FuncLit

	// Block-scope declarations and file-scope entities the hoisted
	// definition needs to see.
	Deps    []*LocalDecl
	Forward []*Obj

	// Unevaluated references to enclosing objects, rewritten on hoisting.
	Refs []*objRef

	ext *extDecl
	ctx *funcContext
}

func (l *FuncLit) addDep(d *LocalDecl) {
	if d == nil {
		return
	}
	for _, x := range l.Deps {
		if x == d {
			return
		}
	}
	l.Deps = append(l.Deps, d)
}

func (l *FuncLit) addForward(o *Obj) {
	for _, x := range l.Forward {
		if x == o {
			return
		}
	}
	l.Forward = append(l.Forward, o)
}

// objRef is an accepted reference to an enclosing object in an
// unevaluated operand.
type objRef struct {
	Tok *Token
	Obj *Obj
}
