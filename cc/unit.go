package cc

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/thradams/local-functions/log"
)

// DefaultPrefix starts the name of every synthesized function. Names
// starting with two underscores are reserved to the implementation.
const DefaultPrefix = "__unnamed_fn_"

type config struct {
	includePaths []string
	defines      []string
	prefix       string
	lineMarkers  bool
	logger       log.Logger
}

// Option configures how a translation unit is read and lowered.
type Option func(*config)

// WithIncludePaths appends directories searched by #include.
func WithIncludePaths(dirs ...string) Option {
	return func(c *config) {
		c.includePaths = append(c.includePaths, dirs...)
	}
}

// WithDefine predefines a macro, as the -D flag of a C compiler does.
// An empty value defines the macro as 1.
func WithDefine(name, value string) Option {
	return func(c *config) {
		if value == "" {
			c.defines = append(c.defines, name)
			return
		}
		c.defines = append(c.defines, name+"="+value)
	}
}

// WithPrefix sets the prefix of synthesized function names.
func WithPrefix(prefix string) Option {
	return func(c *config) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithLineMarkers controls whether hoisted definitions are surrounded by
// #line directives pointing back at the original source.
func WithLineMarkers(enable bool) Option {
	return func(c *config) {
		c.lineMarkers = enable
	}
}

// WithLogger sets the logger receiving debug messages.
func WithLogger(l log.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func makeConfig(opts ...Option) *config {
	cfg := &config{prefix: DefaultPrefix, lineMarkers: true}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// TranslationUnit is a parsed source file.
type TranslationUnit struct {
	File    *File
	Globals *Obj

	// Unnamed functions in the order their bodies end, inner ones
	// before the functions containing them.
	FuncLits []*FuncLit

	// Warnings, and the semantic errors that do not stop parsing.
	Diagnostics DiagnosticList

	cfg       *config
	exts      []*extDecl
	fileScope *Scope
}

// Err returns the errors among the diagnostics, or nil.
func (tu *TranslationUnit) Err() error {
	return tu.Diagnostics.Err()
}

// ParseFile reads and parses the C source file at path. A syntax error
// is returned as a *Diagnostic; semantic errors are collected in the
// Diagnostics of the returned unit.
func ParseFile(ctx context.Context, path string, opts ...Option) (*TranslationUnit, error) {
	contents, err := readFile(path)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("path", path))
	}
	return ParseSource(ctx, path, contents, opts...)
}

// ParseSource parses contents as the C source file named name.
func ParseSource(ctx context.Context, name string, contents []byte, opts ...Option) (tu *TranslationUnit, err error) {
	cfg := makeConfig(opts...)
	defer recoverBailout(&err)

	pp := newPreprocessor(ctx, cfg)
	pp.baseFile = name

	f := newFile(name, 1, contents)
	pp.files = append(pp.files, f)
	cfg.logger.Debug("parsing", slog.String("file", filepath.Clean(name)))

	tok := pp.preprocess(pp.tokenizeFile(f))

	p := newParser(ctx, cfg)
	p.idents = pp.idents
	globals := p.parse(tok)

	tu = &TranslationUnit{
		File:        f,
		Globals:     globals,
		FuncLits:    p.lits,
		Diagnostics: p.diags,
		cfg:         cfg,
		exts:        p.exts,
		fileScope:   p.fileScope,
	}
	return tu, nil
}

// Symbol describes a synthesized function.
type Symbol struct {
	Name      string   `json:"name"             yaml:"name"`
	Signature string   `json:"signature"        yaml:"signature"`
	Pos       Position `json:"pos"              yaml:"pos"`
	Parent    string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	Deps      []string `json:"deps,omitempty"   yaml:"deps,omitempty"`
}

// Symbols lists the synthesized functions in source order.
func (tu *TranslationUnit) Symbols() []Symbol {
	lits := append([]*FuncLit{}, tu.FuncLits...)
	sort.SliceStable(lits, func(i, j int) bool {
		a, b := lits[i].Start.source(), lits[j].Start.source()
		if a.File != b.File {
			return a.File.FileNo < b.File.FileNo
		}
		return a.Location < b.Location
	})

	syms := make([]Symbol, 0, len(lits))
	for _, lit := range lits {
		s := Symbol{
			Name:      lit.Name,
			Signature: lit.signature(),
			Pos:       lit.Start.Pos(),
		}
		if lit.Parent != nil {
			s.Parent = lit.Parent.Name
		}
		for _, d := range lit.Deps {
			s.Deps = append(s.Deps, d.emitted().describe())
		}
		syms = append(syms, s)
	}
	return syms
}

// signature spells the head of the static function of l on one line,
// with the parameter names written in the source. A function type named
// by a typedef has no parameter names; placeholders are used as in the
// definition.
func (l *FuncLit) signature() string {
	if !l.ownParams() {
		return "static " + funcHead(l.Ty, l.Name)
	}
	head := spellTokens(l.Type.Begin, l.NamePos)
	return "static " + declHead(head, l.Name) + spellTokens(l.NamePos, l.Type.End.Next)
}

// spellTokens joins the tokens from tok up to end, separating those that
// were separated in the source by a single space.
func spellTokens(tok, end *Token) string {
	var sb strings.Builder
	for t := tok; t != nil && t != end && t.Kind != TK_EOF; t = t.Next {
		if t != tok && (t.HasSpace || t.AtBeginningOfLine) {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.getText())
	}
	return sb.String()
}

// describe names the entities a declaration introduces, for listings.
func (d *LocalDecl) describe() string {
	var kind string
	switch d.Kind {
	case DeclTag:
		kind = "tag"
	case DeclTypedef:
		kind = "typedef"
	case DeclPrototype:
		kind = "prototype"
	default:
		kind = "declaration"
	}

	names := append([]string{}, d.Names...)
	if d.Tag != "" {
		names = append([]string{d.Tag}, names...)
	}
	if len(names) == 0 {
		return kind
	}
	return kind + " " + strings.Join(names, ", ")
}
