// Package httperr gives the abstract error kinds of spec.md §7 concrete,
// sentinel-comparable types: NotFound, MethodOnlyOptions, Timeout,
// PayloadTooLarge, BadRequest, Application, SerializationFailure,
// InvalidRoute, AlreadyDecorated.
//
// The sentinel-plus-wrapper shape (a comparable Kind an errors.Is caller can
// match, wrapping an optional underlying cause) is grounded on
// ctx/field_error.go's fieldSentinel/FieldErrors pair; the status-code
// mapping and default payload shapes are adapted from the teacher's
// app/errors.go defaultErrorHandler.
package httperr

import (
	"errors"
	"fmt"
)

// Kind identifies which abstract error category of spec.md §7 an Error
// belongs to.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindMethodOnlyOptions    Kind = "method_only_options"
	KindTimeout              Kind = "timeout"
	KindPayloadTooLarge      Kind = "payload_too_large"
	KindBadRequest           Kind = "bad_request"
	KindApplication          Kind = "application"
	KindSerializationFailure Kind = "serialization_failure"
	KindInvalidRoute         Kind = "invalid_route"
	KindAlreadyDecorated     Kind = "already_decorated"
)

// Error is the concrete type behind every error kind this package exposes.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches by Kind, so callers can write errors.Is(err, httperr.KindTimeout)
// style checks via the package-level Is helper, or compare a *Error's Kind
// field directly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Is reports whether err's Kind matches k, the same way errors.Is(err,
// sentinel) would once wrapped through Error.Is.
func Is(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}

// NotFound builds the 404 error for an unmatched route, carrying the
// canonical message format from spec.md §6.
func NotFound(method, path string) *Error {
	return &Error{Kind: KindNotFound, Status: 404, Message: fmt.Sprintf("Route %s %s not found", method, path)}
}

// MethodOnlyOptions marks an OPTIONS request against a path with no
// registered OPTIONS handler; the dispatcher maps this to 204, not an error
// response body.
func MethodOnlyOptions() *Error {
	return &Error{Kind: KindMethodOnlyOptions, Status: 204}
}

// Timeout builds the 408 error raised when the request deadline expires.
func Timeout() *Error {
	return &Error{Kind: KindTimeout, Status: 408, Message: "Request timeout"}
}

// PayloadTooLarge builds the 413 error a body-parser collaborator raises.
func PayloadTooLarge(limit, received int64) *Error {
	return &Error{
		Kind:    KindPayloadTooLarge,
		Status:  413,
		Message: fmt.Sprintf("Payload too large (limit: %d bytes, received: %d bytes)", limit, received),
	}
}

// BadRequest builds the 400 error a body-parser collaborator raises on a
// parse failure.
func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Status: 400, Message: msg}
}

// Application wraps an error raised from user middleware or a handler,
// reported as 500 unless an onError hook overrides it.
func Application(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindApplication, Status: 500, Message: msg, Err: err}
}

// SerializationFailure builds the fixed 500 payload the finalizer sends
// when it cannot serialize a handler's return value.
func SerializationFailure() *Error {
	return &Error{Kind: KindSerializationFailure, Status: 500, Message: "serialization failed"}
}

// InvalidRoute builds the fatal-to-startup error a registration call raises
// for an empty pattern or illegal parameter name.
func InvalidRoute(pattern, reason string) *Error {
	return &Error{Kind: KindInvalidRoute, Status: 0, Message: fmt.Sprintf("invalid route %q: %s", pattern, reason)}
}

// AlreadyDecorated builds the fatal-to-startup error Decorate raises on a
// duplicate name.
func AlreadyDecorated(name string) *Error {
	return &Error{Kind: KindAlreadyDecorated, Status: 0, Message: fmt.Sprintf("%q is already decorated", name)}
}
