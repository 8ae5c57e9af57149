// Package schema validates batches of typed records against the shapes
// declared in their struct tags before they reach storage.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/JakeFAU/oews-ingest/internal/oews"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(fieldName)
		instance = v
	})
	return instance
}

// fieldName reports violations under the storage or wire name of a field.
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"db", "json"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// Violation is one failed rule.
type Violation struct {
	// Index is the record's position in the batch, -1 for a single value.
	Index int
	// Field is the dotted path to the field inside the record.
	Field string
	Rule  string
	Value any
}

func (v Violation) String() string {
	loc := v.Field
	if v.Index >= 0 {
		loc = fmt.Sprintf("[%d].%s", v.Index, v.Field)
	}
	return fmt.Sprintf("%s: failed %q (%v)", loc, v.Rule, v.Value)
}

// ValidationError aggregates every violation found in a batch.
type ValidationError struct {
	Label      string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	msg := fmt.Sprintf("%d violation(s): %s", len(e.Violations), strings.Join(parts, "; "))
	if e.Label != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Label, msg)
	}
	return "validation failed: " + msg
}

// Is lets errors.Is(err, oews.ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == oews.ErrValidation
}

// ValidateBatch checks every record and returns the batch unchanged when all
// pass. Any violation rejects the whole batch.
func ValidateBatch[T any](label string, batch []T) ([]T, error) {
	var violations []Violation
	for i := range batch {
		vs, err := check(i, &batch[i])
		if err != nil {
			return nil, fmt.Errorf("validate %s: %w", label, err)
		}
		violations = append(violations, vs...)
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Label: label, Violations: violations}
	}
	return batch, nil
}

// Validate checks one value, e.g. a decoded API response.
func Validate(label string, value any) error {
	vs, err := check(-1, value)
	if err != nil {
		return fmt.Errorf("validate %s: %w", label, err)
	}
	if len(vs) > 0 {
		return &ValidationError{Label: label, Violations: vs}
	}
	return nil
}

func check(index int, value any) ([]Violation, error) {
	err := engine().Struct(value)
	if err == nil {
		return nil, nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, err
	}
	out := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		out = append(out, Violation{
			Index: index,
			Field: trimRoot(fe.Namespace()),
			Rule:  rule,
			Value: fe.Value(),
		})
	}
	return out, nil
}

// trimRoot drops the struct type name validator puts at the start of a namespace.
func trimRoot(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
