// Package bind implements the argument binder from spec.md §4.2: the
// mechanism that turns a callable's declared parameter names into values
// pulled from a request Context, so a handler can declare "the values it
// needs by name" instead of taking the raw context and digging through it.
//
// Go offers no runtime reflection over a function's parameter names, so
// names are declared through an explicit registration form instead: a
// callable takes either the context itself, or a single struct whose
// exported field names (or an `inject:"name"` tag override) play the role
// of the callable's declared names. This is the escape hatch spec.md §9
// reserves for languages without callable introspection: "the user ...
// declares the handler as a function taking a typed struct whose field
// names play the role of parameter names." spec.md §4.2 is explicit that a
// name failing validation does not fail registration: "names failing
// validation cause the whole callable to fall back to a single-argument
// binder that supplies the context itself." In Go's statically typed
// rendering that fallback can't change the handler's declared parameter
// type, so it degrades to calling the handler with a zero-valued struct,
// populating only a *ctx.Context-typed field if the struct has one — no
// field is name-resolved. The reflective struct-tag walk itself is
// grounded in the teacher corpus's pattern of walking a destination
// struct's fields with reflect and filling them by tag lookup (quokka's
// bind.go).
package bind

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/ignite-go/ignite/ctx"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// goReserved holds the Go keywords; a field or override name matching one of
// these fails validation exactly as a host-language reserved word would in a
// reflective runtime, per spec.md §4.2.
var goReserved = map[string]bool{
	"break": true, "default": true, "func": true, "interface": true, "select": true,
	"case": true, "defer": true, "go": true, "map": true, "struct": true,
	"chan": true, "else": true, "goto": true, "package": true, "switch": true,
	"const": true, "fallthrough": true, "if": true, "range": true, "type": true,
	"continue": true, "for": true, "import": true, "return": true, "var": true,
}

// ctxPtrType/errType/resultType let Compile recognize the two special-case
// callable shapes without the caller naming them explicitly.
var (
	ctxPtrType = reflect.TypeOf((*ctx.Context)(nil))
	errType    = reflect.TypeOf((*error)(nil)).Elem()
	resultType = reflect.TypeOf(ctx.Result{})
)

// Binder is a compiled, memoized extractor for one callable: it knows how to
// turn a Context into the exact argument list that callable's Call expects.
// Compile runs once per registration (spec.md §4.2: "compiled once per
// callable and memoized on the Route").
type Binder struct {
	fn       reflect.Value
	rawCtx   bool // true: callable takes *ctx.Context directly, unflattened
	inType   reflect.Type
	names    []string // declared names, in struct-field order (rawCtx == false)
	fields   []int    // corresponding struct field indices
	outCount int
	hasErr   bool
	validate bool

	// ctxFallback is set when a declared name failed validation: no field
	// is name-resolved, and ctxField (if >= 0) is populated with the
	// request context before invoking the handler with an otherwise
	// zero-valued struct (spec.md §4.2's single-argument fallback).
	ctxFallback bool
	ctxField    int
}

// Option configures Compile.
type Option func(*compileOpts)

type compileOpts struct {
	validate bool
}

// WithValidation runs the struct-tag rules from
// github.com/go-playground/validator/v10 (`validate:"..."`) against the
// assembled input struct before the handler is invoked, returning the
// validator's error instead of calling the handler when a rule fails. This
// is an opt-in ambient helper (spec.md's binder says nothing about schema
// validation), not a change to the injection contract.
func WithValidation() Option {
	return func(o *compileOpts) { o.validate = true }
}

// Compile builds a Binder for handler, which must be a func with exactly one
// parameter — either *ctx.Context, or a struct type whose field names are
// the declared parameter names — and must return (ctx.Result, error) or
// just ctx.Result.
//
// A struct field may override its declared name with an `inject:"name"`
// tag. A field whose resolved name fails identifier validation, collides
// with a Go keyword, or collides with a reserved context key other than the
// fixed fields (params, query, body, request, response) makes Compile
// return the context-only fallback binder: no name is resolved. The fixed
// field names are accepted and resolved by ctx.Context.Lookup.
func Compile(handler any, opts ...Option) (*Binder, error) {
	var o compileOpts
	for _, opt := range opts {
		opt(&o)
	}
	fv := reflect.ValueOf(handler)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("bind: handler must be a function, got %s", ft.Kind())
	}
	if ft.NumIn() != 1 {
		return nil, fmt.Errorf("bind: handler must take exactly one parameter, got %d", ft.NumIn())
	}
	hasErr, err := validateOut(ft)
	if err != nil {
		return nil, err
	}

	in := ft.In(0)

	if in == ctxPtrType {
		return &Binder{fn: fv, rawCtx: true, inType: in, outCount: ft.NumOut(), hasErr: hasErr}, nil
	}

	if in.Kind() != reflect.Struct {
		return nil, fmt.Errorf("bind: handler parameter must be *ctx.Context or a struct, got %s", in)
	}

	// Special case: a lone field named "ctx"/"context" typed *ctx.Context
	// receives the context object unchanged (spec.md §4.2).
	if name, ok := singleContextField(in); ok && (name == "ctx" || name == "context") {
		return &Binder{fn: fv, rawCtx: true, inType: in, outCount: ft.NumOut(), hasErr: hasErr}, nil
	}

	names := make([]string, 0, in.NumField())
	fields := make([]int, 0, in.NumField())
	for i := 0; i < in.NumField(); i++ {
		f := in.Field(i)
		if f.PkgPath != "" { // unexported, never bindable
			continue
		}
		name := lowerFirst(f.Name)
		if tag, ok := f.Tag.Lookup("inject"); ok && tag != "" && tag != "-" {
			name = tag
		}
		if !validName(name) {
			// spec.md §4.2: an invalid name degrades the whole callable
			// to the single-argument context fallback, it does not fail
			// registration.
			return &Binder{
				fn: fv, inType: in, outCount: ft.NumOut(), hasErr: hasErr,
				ctxFallback: true, ctxField: contextFieldIndex(in),
			}, nil
		}
		names = append(names, name)
		fields = append(fields, i)
	}

	return &Binder{fn: fv, inType: in, names: names, fields: fields, outCount: ft.NumOut(), hasErr: hasErr, validate: o.validate}, nil
}

// contextFieldIndex returns the index of in's first *ctx.Context-typed
// exported field, or -1 if it has none.
func contextFieldIndex(in reflect.Type) int {
	for i := 0; i < in.NumField(); i++ {
		f := in.Field(i)
		if f.PkgPath == "" && f.Type == ctxPtrType {
			return i
		}
	}
	return -1
}

func singleContextField(t reflect.Type) (string, bool) {
	if t.NumField() != 1 {
		return "", false
	}
	f := t.Field(0)
	if f.PkgPath != "" || f.Type != ctxPtrType {
		return "", false
	}
	n := lowerFirst(f.Name)
	if tag, ok := f.Tag.Lookup("inject"); ok && tag != "" {
		n = tag
	}
	return n, true
}

func validateOut(ft reflect.Type) (hasErr bool, err error) {
	switch ft.NumOut() {
	case 1:
		if ft.Out(0) != resultType {
			return false, fmt.Errorf("bind: single return value must be ctx.Result, got %s", ft.Out(0))
		}
		return false, nil
	case 2:
		if ft.Out(0) != resultType || !ft.Out(1).Implements(errType) {
			return false, fmt.Errorf("bind: two return values must be (ctx.Result, error)")
		}
		return true, nil
	default:
		return false, fmt.Errorf("bind: handler must return ctx.Result or (ctx.Result, error), got %d values", ft.NumOut())
	}
}

func validName(name string) bool {
	if !identRe.MatchString(name) {
		return false
	}
	if goReserved[name] {
		return false
	}
	switch name {
	case ctx.FieldParams, ctx.FieldQuery, ctx.FieldBody, ctx.FieldRequest, ctx.FieldResponse:
		// Reserved for merges, but resolved as whole fixed fields by Lookup.
		return true
	}
	if ctx.IsReserved(name) {
		return false
	}
	return true
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
