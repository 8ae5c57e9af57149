package record

import (
	"fmt"

	"github.com/JakeFAU/oews-ingest/internal/oews"
)

// ErrorKind separates line-level rejections from file-level aborts.
type ErrorKind int

const (
	// FieldError rejects a single line: a field was present but unparseable.
	FieldError ErrorKind = iota
	// StructuralError means the line cannot be cut into its declared fields.
	StructuralError
)

func (k ErrorKind) String() string {
	if k == StructuralError {
		return "structural"
	}
	return "field"
}

// ParseError describes why a line could not become a record.
type ParseError struct {
	Kind  ErrorKind
	Field string
	Value string
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s error: %s: %s (%q)", e.Kind, e.Field, e.Msg, e.Value)
}

// Is lets errors.Is(err, oews.ErrStructural) match structural failures.
func (e *ParseError) Is(target error) bool {
	return e.Kind == StructuralError && target == oews.ErrStructural
}

// Structural reports whether the error must abort the whole file.
func (e *ParseError) Structural() bool {
	return e.Kind == StructuralError
}

func structural(format string, args ...any) *ParseError {
	return &ParseError{Kind: StructuralError, Msg: fmt.Sprintf(format, args...)}
}

func fieldErr(field, value, msg string) *ParseError {
	return &ParseError{Kind: FieldError, Field: field, Value: value, Msg: msg}
}
