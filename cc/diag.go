package cc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/sahilm/fuzzy"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// Diagnostic codes.
const (
	CodeSyntax               = "syntax"
	CodeCapture              = "capture-not-allowed"
	CodeLabelScope           = "label-scope-violation"
	CodeInvalidLvalue        = "invalid-lvalue-of-function-result"
	CodeDeclaratorNotFunc    = "declarator-not-a-function-type"
	CodeHoistConflict        = "hoist-conflict"
	CodeUnlowerable          = "unlowerable-occurrence"
	CodeImplicitFunctionDecl = "implicit-function-declaration"
)

// Diagnostic is a message attached to a source position.
type Diagnostic struct {
	Severity   Severity
	Code       string
	Message    string
	Pos        Position
	Length     int
	SourceLine string
	Notes      []*Diagnostic

	err error
}

func newDiagnostic(sev Severity, sentinel *Error, code string, tok *Token, format string, args ...any) *Diagnostic {
	d := &Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		err:      sentinel,
	}
	if tok != nil && tok.File != nil {
		src := tok.source()
		d.Pos = src.Pos()
		d.Length = max(src.Length, 1)
		d.SourceLine = sourceLine(src.File, src.Location)
	}
	return d
}

func (d *Diagnostic) note(tok *Token, format string, args ...any) *Diagnostic {
	d.Notes = append(d.Notes, newDiagnostic(SeverityNote, nil, "", tok, format, args...))
	return d
}

func sourceLine(f *File, loc int) string {
	buf := f.Contents
	begin := loc
	for begin > 0 && buf[begin-1] != '\n' {
		begin--
	}
	end := loc
	for end < len(buf) && buf[end] != '\n' && buf[end] != 0 {
		end++
	}
	return strings.TrimRight(string(buf[begin:end]), "\r")
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	if d.Code != "" && d.Code != CodeSyntax {
		return fmt.Sprintf("%s: %s: %s: %s", d.Pos, d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
}

// Unwrap returns the sentinel error of the diagnostic's class.
func (d *Diagnostic) Unwrap() error { return d.err }

// LogValue implements slog.LogValuer.
func (d *Diagnostic) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("severity", d.Severity.String()),
		slog.String("pos", d.Pos.String()),
		slog.String("message", d.Message),
	}
	if d.Code != "" {
		attrs = append(attrs, slog.String("code", d.Code))
	}
	return slog.GroupValue(attrs...)
}

var (
	colorError   = color.New(color.FgRed, color.Bold)
	colorWarning = color.New(color.FgMagenta, color.Bold)
	colorNote    = color.New(color.FgCyan, color.Bold)
	colorPos     = color.New(color.Bold)
	colorCaret   = color.New(color.FgGreen, color.Bold)
)

// Format writes d in the caret style:
//
//	x.c:10:14: error: capture-not-allowed: 'i' ...
//	   10 |     return i + 1;
//	      |            ^
func (d *Diagnostic) Format(w io.Writer, useColor bool) error {
	sev := colorNote
	switch d.Severity {
	case SeverityError:
		sev = colorError
	case SeverityWarning:
		sev = colorWarning
	}

	style := func(c *color.Color, s string) string {
		if !useColor {
			return s
		}
		painted := *c
		painted.EnableColor()
		return painted.Sprint(s)
	}

	head := d.Message
	if d.Code != "" && d.Code != CodeSyntax {
		head = d.Code + ": " + d.Message
	}
	if _, err := fmt.Fprintf(w, "%s %s %s\n",
		style(colorPos, d.Pos.String()+":"),
		style(sev, d.Severity.String()+":"),
		head); err != nil {
		return err
	}

	if d.SourceLine != "" && d.Pos.Line > 0 {
		num := fmt.Sprintf("%5d", d.Pos.Line)
		pad := strings.Repeat(" ", len(num))
		indent := caretIndent(d.SourceLine, d.Pos.Column)
		width := max(1, min(d.Length, len(d.SourceLine)-len(indent)))
		caret := "^" + strings.Repeat("~", max(0, width-1))
		if _, err := fmt.Fprintf(w, "%s | %s\n%s | %s%s\n", num, d.SourceLine, pad, indent, style(colorCaret, caret)); err != nil {
			return err
		}
	}

	for _, n := range d.Notes {
		if err := n.Format(w, useColor); err != nil {
			return err
		}
	}
	return nil
}

// caretIndent keeps tabs so that the caret lines up with the echoed line.
func caretIndent(line string, col int) string {
	var sb strings.Builder
	i := 1
	for _, r := range line {
		if i >= col {
			break
		}
		if r == '\t' {
			sb.WriteByte('\t')
		} else {
			sb.WriteByte(' ')
		}
		i++
	}
	return sb.String()
}

// DiagnosticList collects the diagnostics of a translation unit.
type DiagnosticList []*Diagnostic

func (l DiagnosticList) HasErrors() bool {
	for _, d := range l {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Err returns nil if l holds no errors, otherwise l itself.
func (l DiagnosticList) Err() error {
	if !l.HasErrors() {
		return nil
	}
	return l
}

func (l DiagnosticList) Error() string {
	var errs []string
	for _, d := range l {
		if d.Severity == SeverityError {
			errs = append(errs, d.Error())
		}
	}
	return strings.Join(errs, "\n")
}

func (l DiagnosticList) Unwrap() []error {
	errs := make([]error, 0, len(l))
	for _, d := range l {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		}
	}
	return errs
}

// Format writes every diagnostic of l.
func (l DiagnosticList) Format(w io.Writer, useColor bool) error {
	for _, d := range l {
		if err := d.Format(w, useColor); err != nil {
			return err
		}
	}
	return nil
}

// bailout carries a fatal diagnostic up to the API boundary.
type bailout struct {
	diag *Diagnostic
}

func errorTok(tok *Token, format string, args ...any) {
	panic(bailout{newDiagnostic(SeverityError, ErrSyntax, CodeSyntax, tok, format, args...)})
}

func (t *tokenizer) errorAt(loc int, msg string) {
	tok := &Token{File: t.file, Location: loc, Length: 1, LineNo: t.lineNo}
	errorTok(tok, "%s", msg)
}

// recoverBailout converts a bailout panic into an error.
func recoverBailout(err *error) {
	r := recover()
	if r == nil {
		return
	}
	b, ok := r.(bailout)
	if !ok {
		panic(r)
	}
	*err = b.diag
}

// asDiagnostic returns the diagnostic carried by err, if any.
func asDiagnostic(err error) (*Diagnostic, bool) {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// suggest returns the candidate closest to name, or "".
func suggest(name string, candidates []string) string {
	if len(candidates) == 0 || len(name) < 2 {
		return ""
	}
	matches := fuzzy.Find(name, candidates)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
