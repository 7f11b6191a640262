package ctx

import (
	"encoding/json"
	"mime"
	"net/url"
	"reflect"
	"strings"

	ms "github.com/mitchellh/mapstructure"
)

// newMSDecoder is a package-level hook so tests can stub decoder creation.
var newMSDecoder = ms.NewDecoder

// BindOptions customizes how JSON/map binding decodes a payload into a
// struct. A Bind call given no BindOptions is strict (ErrorUnused: true,
// WeaklyTypedInput: false): unknown fields error, no implicit coercion. A
// BindOptions that is passed is used as is, so its zero value does not
// error on unknown fields.
type BindOptions struct {
	// WeaklyTypedInput allows common coercions, e.g. "10" -> 10 for an int field.
	WeaklyTypedInput bool
	// ErrorUnused, when true, errors on fields the destination struct doesn't declare.
	ErrorUnused bool
}

// BindJSON decodes the request body as JSON into v. For a non-struct
// pointer target (map, slice) it uses the standard decoder directly with
// DisallowUnknownFields; for a struct target it decodes to a map first and
// delegates to BindMap for consistent field-error reporting.
func (c *Context) BindJSON(v any, opts ...BindOptions) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		defer c.request.Body.Close()
		dec := json.NewDecoder(c.request.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			if fe := mapJSONStrictError(err, nil); fe != nil {
				return fe
			}
			return err
		}
		return nil
	}
	m, err := c.collectJSONMap()
	if err != nil {
		return err
	}
	return c.BindMap(v, m, opts...)
}

// BindMap decodes m into v using mapstructure with the "json" struct tag as
// the field-name source, honoring opts.
func (c *Context) BindMap(v any, m map[string]any, opts ...BindOptions) error {
	var o BindOptions
	if len(opts) > 0 {
		o = opts[0]
	} else {
		o.ErrorUnused = true
	}

	var targetType reflect.Type
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.Ptr && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
		targetType = rv.Elem().Type()
	}

	cfg := &ms.DecoderConfig{
		TagName:          "json",
		Result:           v,
		WeaklyTypedInput: o.WeaklyTypedInput,
		ErrorUnused:      o.ErrorUnused,
	}
	dec, err := newMSDecoder(cfg)
	if err != nil {
		return err
	}
	if err := dec.Decode(m); err != nil {
		if fe := mapMapStructureError(err, o, targetType); fe != nil {
			return fe
		}
		return err
	}
	return nil
}

// BindForm parses the request form (urlencoded or multipart, textual
// fields only) and binds it into v.
func (c *Context) BindForm(v any, opts ...BindOptions) error {
	m, err := c.collectFormMap()
	if err != nil {
		return err
	}
	return c.BindMap(v, m, opts...)
}

// BindQuery binds the URL query string into v, last value per key.
func (c *Context) BindQuery(v any, opts ...BindOptions) error {
	return c.BindMap(v, c.collectQueryMap(), opts...)
}

// BindPath binds matched route parameters into v.
func (c *Context) BindPath(v any, opts ...BindOptions) error {
	return c.BindMap(v, c.collectPathMap(), opts...)
}

// BindAny merges query, body (form then JSON), and path parameters into one
// map and binds it into v. Precedence lowest to highest: query, form, JSON,
// path.
func (c *Context) BindAny(v any, opts ...BindOptions) error {
	out := make(map[string]any, len(c.query)+len(c.params))
	c.collectQueryInto(out)

	ct := c.request.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(ct)
	if mediaType == "application/x-www-form-urlencoded" || strings.HasPrefix(mediaType, "multipart/") {
		if err := c.collectFormInto(out); err != nil {
			return err
		}
	}
	if mediaType == "application/json" || strings.Contains(mediaType, "+json") {
		jm, err := c.collectJSONMap()
		if err != nil {
			return err
		}
		for k, v := range jm {
			out[k] = v
		}
	}

	for k, v := range c.params {
		out[k] = v
	}

	return c.BindMap(v, out, opts...)
}

func (c *Context) collectJSONMap() (map[string]any, error) {
	defer c.request.Body.Close()
	var m map[string]any
	if err := json.NewDecoder(c.request.Body).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Context) collectFormMap() (map[string]any, error) {
	if err := c.request.ParseForm(); err != nil {
		return nil, err
	}
	if ct := c.request.Header.Get("Content-Type"); strings.HasPrefix(ct, "multipart/") && c.request.MultipartForm == nil {
		if err := c.request.ParseMultipartForm(32 << 20); err != nil {
			return nil, err
		}
	}
	out := valuesToMap(c.request.PostForm)
	if c.request.MultipartForm != nil {
		for k, vals := range c.request.MultipartForm.Value {
			if len(vals) > 0 {
				if _, ok := out[k]; !ok {
					out[k] = vals[0]
				}
			}
		}
	}
	return out, nil
}

func (c *Context) collectQueryMap() map[string]any {
	out := make(map[string]any, len(c.query))
	for k, v := range c.query {
		out[k] = v
	}
	return out
}

func (c *Context) collectQueryInto(dst map[string]any) {
	for k, v := range c.query {
		dst[k] = v
	}
}

func (c *Context) collectPathMap() map[string]any {
	out := make(map[string]any, len(c.params))
	for k, v := range c.params {
		out[k] = v
	}
	return out
}

func (c *Context) collectFormInto(dst map[string]any) error {
	if err := c.request.ParseForm(); err != nil {
		return err
	}
	if ct := c.request.Header.Get("Content-Type"); strings.HasPrefix(ct, "multipart/") && c.request.MultipartForm == nil {
		if err := c.request.ParseMultipartForm(32 << 20); err != nil {
			return err
		}
	}
	for k, vals := range c.request.PostForm {
		if len(vals) > 0 {
			dst[k] = vals[0]
		}
	}
	if c.request.MultipartForm != nil {
		for k, vals := range c.request.MultipartForm.Value {
			if len(vals) > 0 {
				dst[k] = vals[0]
			}
		}
	}
	return nil
}

func valuesToMap(v url.Values) map[string]any {
	out := make(map[string]any, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out
}

// mapJSONStrictError converts a stdlib encoding/json error into a FieldErrors
// aggregate when it recognizes the shape (unknown field, type mismatch).
func mapJSONStrictError(err error, targetType reflect.Type) error {
	s := err.Error()
	if strings.Contains(s, "unknown field ") {
		if start := strings.Index(s, "\""); start != -1 {
			if end := strings.Index(s[start+1:], "\""); end != -1 {
				if field := s[start+1 : start+1+end]; field != "" {
					return fieldErrorsFromMap(map[string]string{field: ErrFieldUnexpected.Error()})
				}
			}
		}
	}
	if fe := tryJSONTypeErrorToField(err, targetType); fe != nil {
		return fe
	}
	return nil
}

func tryJSONTypeErrorToField(err error, targetType reflect.Type) error {
	s := err.Error()
	const marker = "Go struct field "
	i := strings.Index(s, marker)
	if i == -1 {
		return nil
	}
	s = s[i+len(marker):]
	parts := strings.Split(s, " of type ")
	if len(parts) != 2 {
		return nil
	}
	fieldPath := parts[0]
	if idx := strings.LastIndex(fieldPath, "."); idx != -1 {
		fieldPath = fieldPath[idx+1:]
	}
	if fieldPath == "" {
		return nil
	}
	if targetType != nil && targetType.Kind() == reflect.Struct {
		if ft, ok := findExpectedFieldType(targetType, fieldPath); ok {
			return fieldErrorsFromMap(map[string]string{fieldPath: expectedTypeLabel(ft) + " " + ErrFieldTypeExpected.Error()})
		}
	}
	return fieldErrorsFromMap(map[string]string{fieldPath: ErrFieldInvalidType.Error()})
}

func mapMapStructureError(err error, o BindOptions, targetType reflect.Type) error {
	s := err.Error()
	if o.ErrorUnused && strings.Contains(s, "has invalid keys:") {
		marker := "has invalid keys:"
		idx := strings.Index(s, marker)
		list := s[idx+len(marker):]
		if nl := strings.IndexByte(list, '\n'); nl != -1 {
			list = list[:nl]
		}
		fe := map[string]string{}
		for _, p := range strings.Split(strings.TrimSpace(list), ",") {
			k := strings.Trim(strings.TrimSpace(p), "* '`\" .;:")
			if k != "" {
				fe[k] = ErrFieldUnexpected.Error()
			}
		}
		if len(fe) > 0 {
			return fieldErrorsFromMap(fe)
		}
	}
	if !o.WeaklyTypedInput {
		if field, ok := extractFieldFromMapStructureTypeError(s); ok {
			if targetType != nil {
				if ft, ok2 := findExpectedFieldType(targetType, field); ok2 {
					return fieldErrorsFromMap(map[string]string{field: expectedTypeLabel(ft) + " " + ErrFieldTypeExpected.Error()})
				}
			}
			return fieldErrorsFromMap(map[string]string{field: ErrFieldInvalidType.Error()})
		}
	}
	return err
}

func extractFieldFromMapStructureTypeError(s string) (string, bool) {
	if strings.HasPrefix(s, " error(s) decoding:") {
		lines := strings.Split(s, "\n")
		for i := len(lines) - 1; i >= 0; i-- {
			if line := strings.TrimSpace(lines[i]); line != "" {
				s = line
				break
			}
		}
	}
	start := strings.Index(s, "cannot decode '")
	if start == -1 {
		start = strings.Index(s, "invalid type for '")
		if start == -1 {
			s2 := strings.TrimSpace(strings.TrimPrefix(s, "* "))
			q1 := strings.IndexByte(s2, '\'')
			if q1 == -1 {
				return "", false
			}
			q2 := strings.IndexByte(s2[q1+1:], '\'')
			if q2 == -1 {
				return "", false
			}
			field := s2[q1+1 : q1+1+q2]
			if strings.Contains(s2[q1+1+q2+1:], " expected type '") {
				return field, true
			}
			return "", false
		}
		start += len("invalid type for '")
	} else {
		start += len("cannot decode '")
	}
	end := strings.Index(s[start:], "'")
	if end == -1 {
		return "", false
	}
	return s[start : start+end], true
}

func findExpectedFieldType(t reflect.Type, jsonField string) (reflect.Type, bool) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("json")
		if name != "" {
			if idx := strings.Index(name, ","); idx >= 0 {
				name = name[:idx]
			}
			if name == "-" {
				continue
			}
			if strings.EqualFold(name, jsonField) {
				return f.Type, true
			}
		}
		if strings.EqualFold(f.Name, jsonField) {
			return f.Type, true
		}
	}
	return nil, false
}

func expectedTypeLabel(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return "uint"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Bool:
		return "bool"
	case reflect.String:
		return "string"
	case reflect.Array, reflect.Slice:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return t.Kind().String()
	}
}
