package cc

import (
	"log/slog"
	"strings"
)

// Predefined errors (sentinel values).
var (
	ErrSyntax                = NewError("syntax error")
	ErrCapture               = NewError("capture not allowed")
	ErrLabelScope            = NewError("label scope violation")
	ErrInvalidLvalue         = NewError("invalid lvalue of function result")
	ErrDeclaratorNotFunction = NewError("declarator not a function type")
	ErrHoistConflict         = NewError("hoisted declaration conflicts")
	ErrUnlowerable           = NewError("occurrence cannot be lowered")
	ErrImplicitDecl          = NewError("implicit function declaration")
	ErrReadInput             = NewError("failed to read input")
	ErrSymbolCollision       = NewError("synthesized symbol collision")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// Error implements the error interface.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is matches errors derived from the same sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.msg != "" && t.msg == e.msg
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs,
	}
}

// With adds attributes to the error for structured logging.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}
