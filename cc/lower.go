package cc

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
)

// Lower writes the main file of the unit with every unnamed function
// replaced by the name of a static function defined at file scope.
//
// The text of the file is edited rather than regenerated, so comments
// and preprocessing directives survive. For each external declaration
// containing unnamed functions, the following is inserted before it:
// the block-scope declarations the functions need, forward declarations
// of what the external declaration itself declares, then the function
// definitions, inner ones first.
//
// Nothing is written if the unit has errors.
func (tu *TranslationUnit) Lower(w io.Writer) error {
	if err := tu.Err(); err != nil {
		return err
	}

	lw := &lowerer{
		tu:      tu,
		file:    tu.File,
		src:     tu.File.Text(),
		hoisted: map[string]*LocalDecl{},
		tags:    map[string]*LocalDecl{},
	}
	out, err := lw.lower()
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, out)
	return err
}

type lowerer struct {
	tu   *TranslationUnit
	file *File
	src  []byte

	// Names declared at file scope by earlier hoisted groups.
	hoisted map[string]*LocalDecl
	tags    map[string]*LocalDecl

	diags DiagnosticList
}

// edit replaces src[begin:end] with text.
type edit struct {
	begin, end int
	text       string
}

func (lw *lowerer) lower() (string, error) {
	lw.checkNames()

	var edits []edit
	for _, ext := range lw.tu.exts {
		if len(ext.Lits) == 0 || !lw.lowerable(ext) {
			continue
		}
		edits = append(edits, lw.hoist(ext)...)
	}

	if err := lw.diags.Err(); err != nil {
		return "", err
	}
	return applyEdits(lw.src, edits), nil
}

// checkNames makes sure no two functions were given the same name.
func (lw *lowerer) checkNames() {
	seen := map[string]bool{}
	for _, lit := range lw.tu.FuncLits {
		if seen[lit.Name] {
			panic(ErrSymbolCollision.With(slog.String("name", lit.Name)))
		}
		seen[lit.Name] = true
	}
}

// inPlace reports whether tok is spelled in the main file, so that
// its text can be edited.
func (lw *lowerer) inPlace(tok *Token) bool {
	return tok != nil && tok.Origin == nil && tok.File == lw.file
}

func (lw *lowerer) unlowerable(lit *FuncLit, why string) {
	lw.diags = append(lw.diags, newDiagnostic(SeverityError, ErrUnlowerable, CodeUnlowerable, lit.Start,
		"unnamed function '%s' cannot be rewritten: %s", lit.Name, why))
}

func (lw *lowerer) lowerable(ext *extDecl) bool {
	ok := true
	for _, lit := range ext.Lits {
		src := lit.Start.source()
		if src.File != lw.file || ext.Begin.source().File != lw.file {
			lw.unlowerable(lit, "it is written in an included file")
			ok = false
			continue
		}

		toks := []*Token{lit.Start, lit.End, lit.Type.Begin, lit.Type.End, lit.brace()}
		if lit.ownParams() {
			toks = append(toks, lit.NamePos)
		}
		if lit.Attr.valid() {
			toks = append(toks, lit.Attr.Begin, lit.Attr.End)
		}
		for _, r := range lit.Refs {
			toks = append(toks, r.Tok)
		}

		for _, tok := range toks {
			if !lw.inPlace(tok) {
				lw.unlowerable(lit, "part of it comes from a macro expansion")
				ok = false
				break
			}
		}
	}
	return ok
}

func (lw *lowerer) hoist(ext *extDecl) []edit {
	var edits []edit
	for _, lit := range ext.Lits {
		if lit.Parent == nil {
			b, e := lit.Start.Location, lit.End.end()
			edits = append(edits, edit{b, e, lit.Name + newlines(lw.src[b:e])})
		}
	}

	at := ext.Begin.source().Location
	deps := lw.deps(ext)
	lw.checkConflicts(deps)
	for _, d := range deps {
		if ed, ok := lw.original(ext, d); ok {
			edits = append(edits, ed)
		}
	}

	var sb strings.Builder
	if at > 0 && lw.src[at-1] != '\n' {
		sb.WriteByte('\n')
	}
	for _, d := range deps {
		sb.WriteString(declText(d))
		sb.WriteByte('\n')
	}
	for _, text := range lw.forwards(ext) {
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	for _, lit := range ext.Lits {
		lw.definition(&sb, lit)
	}
	if lw.tu.cfg.lineMarkers {
		fmt.Fprintf(&sb, "#line %d %s\n", ext.Begin.source().LineNo, quoteFileName(lw.file.Name))
	}
	edits = append(edits, edit{at, at, sb.String()})

	lw.tu.cfg.logger.Debug("hoisted",
		slog.String("pos", ext.Begin.Pos().String()),
		slog.Int("functions", len(ext.Lits)),
		slog.Int("declarations", len(deps)))
	return edits
}

// deps returns the block-scope declarations needed by the functions of
// ext, in source order. Declarations written in the type name of one
// of the functions are left out; the definition repeats them.
func (lw *lowerer) deps(ext *extDecl) []*LocalDecl {
	inHead := func(d *LocalDecl) bool {
		for _, lit := range ext.Lits {
			if spanWithin(d.Span, lit.Type) {
				return true
			}
		}
		return false
	}

	seen := map[*LocalDecl]bool{}
	var out []*LocalDecl

	var visit func(d *LocalDecl)
	visit = func(d *LocalDecl) {
		d = d.emitted()
		if seen[d] {
			return
		}
		seen[d] = true
		for _, dep := range d.Deps {
			visit(dep)
		}
		if !inHead(d) {
			out = append(out, d)
		}
	}
	for _, lit := range ext.Lits {
		for _, d := range lit.Deps {
			visit(d)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// original rewrites the block-scope declaration d once a copy of it is
// hoisted: a typedef or a tag definition standing alone is removed, and
// a tag definition followed by declarators is reduced to a reference to
// the tag. The enclosing function then uses the file-scope type, which
// is the one the hoisted functions were defined with. Declarations that
// cannot be edited this way are left alone.
func (lw *lowerer) original(ext *extDecl, d *LocalDecl) (edit, bool) {
	if d.Text != "" || d.Kind == DeclPrototype || !lw.inPlace(d.Span.Begin) || !lw.inPlace(d.Span.End) {
		return edit{}, false
	}
	for _, lit := range ext.Lits {
		if spanWithin(d.Span, Span{Begin: lit.Start, End: lit.End}) {
			return edit{}, false
		}
	}

	b, e := d.Span.Begin.Location, d.Span.End.end()
	if d.Kind == DeclTypedef {
		if !lw.atStatement(b) {
			return edit{}, false
		}
		return edit{b, e, newlines(lw.src[b:e])}, true
	}

	semi := d.Span.End.Next
	if semi == nil || !semi.isEqual(";") {
		if d.Tag == "" {
			return edit{}, false
		}
		return edit{b, e, d.Span.Begin.getText() + " " + d.Tag + newlines(lw.src[b:e])}, true
	}
	if !lw.inPlace(semi) || !lw.atStatement(b) {
		return edit{}, false
	}
	e = semi.end()
	return edit{b, e, newlines(lw.src[b:e])}, true
}

// atStatement reports whether offset off starts a statement, i.e. only
// white space separates it from the previous ';' or brace.
func (lw *lowerer) atStatement(off int) bool {
	for i := off - 1; i >= 0; i-- {
		switch lw.src[i] {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			continue
		case ';', '{', '}':
			return true
		default:
			return false
		}
	}
	return true
}

func spanWithin(s, outer Span) bool {
	if !s.valid() || !outer.valid() {
		return false
	}
	b, e := s.Begin.source(), s.End.source()
	ob, oe := outer.Begin.source(), outer.End.source()
	return b.File == ob.File && e.File == oe.File &&
		b.Location >= ob.Location && e.end() <= oe.end()
}

func declText(d *LocalDecl) string {
	if d.Text != "" {
		return d.Text
	}
	text := spanText(d.Span)
	if d.Kind == DeclTag {
		text += ";"
	}
	return text
}

// declNames returns the ordinary identifiers and the tags declared by d
// and the declarations it contains.
func declNames(d *LocalDecl) (names, tags []string) {
	names = append(names, d.Names...)
	if d.Tag != "" {
		tags = append(tags, d.Tag)
	}
	for _, in := range d.inner {
		if in.emitted() != d {
			continue
		}
		n, t := declNames(in)
		names = append(names, n...)
		tags = append(tags, t...)
	}
	return names, tags
}

// checkConflicts reports declarations that cannot be repeated at file
// scope because the name already means something else there.
func (lw *lowerer) checkConflicts(deps []*LocalDecl) {
	fs := lw.tu.fileScope

	for _, d := range deps {
		if d.Kind == DeclPrototype {
			continue
		}

		names, tags := declNames(d)
		for _, name := range names {
			if prev := lw.hoisted[name]; prev != nil && prev != d {
				lw.hoistedTwice(d, name, prev)
				continue
			}
			if vs := fs.Vars[name]; vs != nil {
				var at *Token
				if vs.Variable != nil {
					at = vs.Variable.Tok
				}
				lw.conflict(d, name, at)
				continue
			}
			lw.hoisted[name] = d
		}
		for _, tag := range tags {
			if prev := lw.tags[tag]; prev != nil && prev != d {
				lw.hoistedTwice(d, tag, prev)
				continue
			}
			if ty := fs.Tags[tag]; ty != nil {
				lw.conflict(d, tag, ty.Tag)
				continue
			}
			lw.tags[tag] = d
		}
	}
}

func (lw *lowerer) conflict(d *LocalDecl, name string, prev *Token) {
	diag := newDiagnostic(SeverityError, ErrHoistConflict, CodeHoistConflict, d.Span.Begin,
		"declaration of '%s' is needed at file scope, where '%s' is already declared", name, name)
	if prev != nil {
		diag.note(prev, "'%s' declared here", name)
	}
	lw.diags = append(lw.diags, diag)
}

// hoistedTwice reports two block-scope declarations of name, in different
// functions, that both have to move to file scope.
func (lw *lowerer) hoistedTwice(d *LocalDecl, name string, prev *LocalDecl) {
	diag := newDiagnostic(SeverityError, ErrHoistConflict, CodeHoistConflict, d.Span.Begin,
		"declaration of '%s' is needed at file scope, where an earlier unnamed function already needs another '%s'", name, name)
	diag.note(prev.Span.Begin, "other '%s' declared here", name)
	lw.diags = append(lw.diags, diag)
}

// forwards declares the file-scope entities of ext itself that the
// functions use, since the definitions precede ext.
func (lw *lowerer) forwards(ext *extDecl) []string {
	seen := map[*Obj]bool{}
	var out []string

	for _, lit := range ext.Lits {
		for _, o := range lit.Forward {
			if seen[o] {
				continue
			}
			seen[o] = true

			text, ok := forwardDecl(o)
			if !ok {
				lw.unlowerable(lit, fmt.Sprintf("'%s' cannot be declared before its declaration", o.Name))
				continue
			}
			out = append(out, text)
		}
	}
	return out
}

func forwardDecl(o *Obj) (string, bool) {
	if o.IsImplicit {
		return "int " + o.Name + "();", true
	}
	if !o.DeclSpec.valid() || !o.Declarator.valid() || o.IsConstexpr {
		return "", false
	}

	specs := spanText(o.DeclSpec)
	if strings.ContainsAny(specs, "{}") {
		return "", false
	}

	text := specs + " " + spanText(o.Declarator) + ";"
	if !o.IsFunction && !o.IsStatic && !o.IsExtern {
		text = "extern " + text
	}
	return text, true
}

// definition writes the static function of lit. The text between the
// tokens is replaced by as many newlines as it held, so that a #line
// directive before the definition keeps every line of the body in place.
func (lw *lowerer) definition(sb *strings.Builder, lit *FuncLit) {
	if lw.tu.cfg.lineMarkers {
		fmt.Fprintf(sb, "#line %d %s\n", lit.Start.LineNo, quoteFileName(lw.file.Name))
	}

	pos := lit.Start.end()
	if lit.Attr.valid() {
		sb.WriteString(lw.gap(pos, lit.Attr.Begin.Location, ""))
		sb.WriteString(lw.rewrite(lit, lit.Attr.Begin.Location, lit.Attr.End.end()))
		pos = lit.Attr.End.end()
		sb.WriteString(lw.gap(pos, lit.Type.Begin.Location, " "))
	} else {
		sb.WriteString(lw.gap(pos, lit.Type.Begin.Location, ""))
	}
	sb.WriteString("static ")

	begin, end := lit.Type.Begin.Location, lit.Type.End.end()
	if lit.ownParams() {
		sb.WriteString(declHead(lw.rewrite(lit, begin, lit.NamePos.Location), lit.Name))
		sb.WriteString(lw.rewrite(lit, lit.NamePos.Location, end))
	} else {
		sb.WriteString(funcHead(lit.Ty, lit.Name))
		sb.WriteString(newlines(lw.src[begin:end]))
	}

	brace := lit.brace()
	sb.WriteString(lw.gap(end, brace.Location, " "))
	sb.WriteString(lw.rewrite(lit, brace.Location, lit.End.end()))
	sb.WriteByte('\n')
}

// declHead joins the text before a declarator identifier with name.
func declHead(head, name string) string {
	head = strings.TrimRight(head, " \t")
	if head != "" && !strings.HasSuffix(head, "*") && !strings.HasSuffix(head, "(") {
		head += " "
	}
	return head + name
}

// gap stands for the text between two tokens: its newlines, or sep.
func (lw *lowerer) gap(begin, end int, sep string) string {
	if nl := newlines(lw.src[begin:end]); nl != "" {
		return nl
	}
	return sep
}

// rewrite returns src[begin:end] with the functions nested in lit
// replaced by their names and the references to enclosing objects by
// expressions of the same type.
func (lw *lowerer) rewrite(lit *FuncLit, begin, end int) string {
	var edits []edit
	for _, ch := range lit.Children {
		b, e := ch.Start.Location, ch.End.end()
		if b >= begin && e <= end {
			edits = append(edits, edit{b, e, ch.Name + newlines(lw.src[b:e])})
		}
	}

	inChild := func(loc int) bool {
		for _, ed := range edits {
			if loc >= ed.begin && loc < ed.end {
				return true
			}
		}
		return false
	}

	var refs []edit
	for _, r := range lit.Refs {
		b, e := r.Tok.Location, r.Tok.end()
		if b >= begin && e <= end && !inChild(b) {
			refs = append(refs, edit{b, e, "(*(" + typeString(pointerTo(r.Obj.Ty)) + ")0)"})
		}
	}
	edits = append(edits, refs...)

	for i := range edits {
		edits[i].begin -= begin
		edits[i].end -= begin
	}
	return applyEdits(lw.src[begin:end], edits)
}

// applyEdits applies non-overlapping edits to src. Insertions at the
// offset of a replacement go first.
func applyEdits(src []byte, edits []edit) string {
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].begin != edits[j].begin {
			return edits[i].begin < edits[j].begin
		}
		return edits[i].end < edits[j].end
	})

	var sb strings.Builder
	pos := 0
	for _, ed := range edits {
		if ed.begin < pos {
			panic(fmt.Sprintf("cc: overlapping edits at offset %d", ed.begin))
		}
		sb.Write(src[pos:ed.begin])
		sb.WriteString(ed.text)
		pos = ed.end
	}
	sb.Write(src[pos:])
	return sb.String()
}

func newlines(b []byte) string {
	return strings.Repeat("\n", strings.Count(string(b), "\n"))
}

var fileNameEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quoteFileName(name string) string {
	return `"` + fileNameEscaper.Replace(name) + `"`
}
