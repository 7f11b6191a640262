package bind

import (
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/ignite-go/ignite/ctx"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Invoke resolves the Binder's declared names against c and calls the
// underlying handler, returning its Result and error (nil error if the
// handler only declared a single return value).
//
// Resolution per name follows spec.md §4.2's lookup order: the context's
// free-form map first, then the fixed fields. A name that resolves to
// nothing leaves its struct field at its zero value — the Go rendering of
// "absent" (spec.md §4.2), since Go has no untyped-nil-into-any-field
// escape hatch that would preserve a statically typed struct's field type.
func (b *Binder) Invoke(c *ctx.Context) (ctx.Result, error) {
	var arg reflect.Value
	switch {
	case b.rawCtx:
		if b.inType == ctxPtrType {
			arg = reflect.ValueOf(c)
		} else {
			sv := reflect.New(b.inType).Elem()
			sv.Field(0).Set(reflect.ValueOf(c))
			arg = sv
		}
	case b.ctxFallback:
		sv := reflect.New(b.inType).Elem()
		if b.ctxField >= 0 {
			sv.Field(b.ctxField).Set(reflect.ValueOf(c))
		}
		arg = sv
	default:
		sv := reflect.New(b.inType).Elem()
		for i, fieldIdx := range b.fields {
			name := b.names[i]
			val, ok := c.Lookup(name)
			if !ok {
				continue
			}
			assign(sv.Field(fieldIdx), val)
		}
		arg = sv
	}

	if b.validate && !b.rawCtx && !b.ctxFallback {
		if err := validate.Struct(arg.Interface()); err != nil {
			return ctx.None, err
		}
	}

	out := b.fn.Call([]reflect.Value{arg})
	res, _ := out[0].Interface().(ctx.Result)
	if b.hasErr {
		if errVal := out[1]; !errVal.IsNil() {
			return res, errVal.Interface().(error)
		}
	}
	return res, nil
}

// assign copies val into field if the dynamic type is assignable, or is
// convertible for the common numeric/string widening cases. A mismatched,
// inconvertible value is dropped silently rather than panicking a request
// thread over a caller's type mistake.
func assign(field reflect.Value, val any) {
	if !field.CanSet() || val == nil {
		return
	}
	rv := reflect.ValueOf(val)
	ft := field.Type()
	if rv.Type().AssignableTo(ft) {
		field.Set(rv)
		return
	}
	if rv.Type().ConvertibleTo(ft) {
		switch ft.Kind() {
		case reflect.String, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64, reflect.Bool:
			field.Set(rv.Convert(ft))
		}
	}
}
