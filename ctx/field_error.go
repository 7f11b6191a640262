package ctx

import (
	"fmt"
	"strings"
)

// fieldSentinel is a light-weight error used for sentinel comparisons, so
// callers can errors.Is against a category without depending on the exact
// message text.
type fieldSentinel string

func (e fieldSentinel) Error() string { return string(e) }

// Sentinel errors for the common field-binding failure categories produced
// by BindJSON/BindMap/BindForm/BindQuery/BindPath/BindAny.
var (
	// ErrFieldUnexpected matches unknown/unexpected input fields.
	ErrFieldUnexpected error = fieldSentinel("unexpected")
	// ErrFieldInvalidType matches type mismatches without a known expected type.
	ErrFieldInvalidType error = fieldSentinel("invalid type")
	// ErrFieldTypeExpected matches any message that ends with " type expected" (e.g., "int type expected").
	ErrFieldTypeExpected error = fieldSentinel("type expected")
)

// FieldError is one field's validation or binding failure: a field path and
// a human-friendly message.
type FieldError interface {
	Field() string
	Message() string
}

// FieldErrors aggregates multiple field failures and satisfies errors.Is
// against the sentinels above.
type FieldErrors interface {
	error
	All() []FieldError
}

type fieldError struct {
	field   string
	message string
}

func (e fieldError) Field() string   { return e.field }
func (e fieldError) Message() string { return e.message }
func (e fieldError) Error() string   { return fmt.Sprintf("field %s: %s", e.field, e.message) }

type fieldErrorsMap struct {
	m map[string]string
}

func (f fieldErrorsMap) Error() string {
	return "field validation errors"
}

// Is enables errors.Is to detect sentinel field error categories on the aggregate.
// It matches if any contained field error belongs to the requested category.
func (f fieldErrorsMap) Is(target error) bool {
	// We match only against our sentinel type to avoid accidental string matches.
	s, ok := target.(fieldSentinel)
	if !ok {
		return false
	}
	for _, msg := range f.m {
		switch s {
		case ErrFieldTypeExpected.(fieldSentinel):
			if strings.HasSuffix(msg, " "+ErrFieldTypeExpected.Error()) {
				return true
			}
		case ErrFieldUnexpected.(fieldSentinel):
			if msg == ErrFieldUnexpected.Error() {
				return true
			}
		case ErrFieldInvalidType.(fieldSentinel):
			if msg == ErrFieldInvalidType.Error() {
				return true
			}
		default:
			if msg == s.Error() {
				return true
			}
		}
	}
	return false
}

// All returns the list of individual field errors contained in the aggregate.
// Each entry exposes the field path/name and a human-friendly message.
func (f fieldErrorsMap) All() []FieldError {
	out := make([]FieldError, 0, len(f.m))
	for k, v := range f.m {
		out = append(out, fieldError{field: k, message: v})
	}
	return out
}

// AsFieldErrors reports whether err is a FieldErrors aggregate.
func AsFieldErrors(err error) (FieldErrors, bool) {
	fe, ok := err.(FieldErrors)
	return fe, ok
}

// fieldErrorsFromMap builds a FieldErrors aggregate from field->message
// pairs, or nil if m is empty.
func fieldErrorsFromMap(m map[string]string) FieldErrors {
	if len(m) == 0 {
		return nil
	}
	return fieldErrorsMap{m: m}
}
