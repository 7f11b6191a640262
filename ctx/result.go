package ctx

// Result is the tagged union a handler or middleware callable returns,
// matching spec.md §9's "Callable variadic return shapes": a context patch
// (mapping merged into the free-form context map), a tagged HTML/text/file
// payload, an arbitrary JSON-able value, or None (nothing to do).
//
// Build one with the constructors below; the zero Result is None.
type Result struct {
	kind     resultKind
	patch    map[string]any
	html     string
	text     string
	filePath string
	json     any
}

type resultKind int

const (
	kindNone resultKind = iota
	kindPatch
	kindHTML
	kindText
	kindFile
	kindJSON
)

// Patch returns a Result that merges m into the context's free-form map
// using the merge policy (first writer wins, reserved keys excluded).
func Patch(m map[string]any) Result { return Result{kind: kindPatch, patch: m} }

// HTML returns a Result rendered as text/html; charset=utf-8.
func HTML(body string) Result { return Result{kind: kindHTML, html: body} }

// Text returns a Result rendered as text/plain; charset=utf-8.
func Text(body string) Result { return Result{kind: kindText, text: body} }

// File returns a Result delegated to the registered FileResponder collaborator.
func File(path string) Result { return Result{kind: kindFile, filePath: path} }

// JSON returns a Result serialized as application/json.
func JSON(v any) Result { return Result{kind: kindJSON, json: v} }

// None is the result of a middleware/handler that already wrote its own
// response, or that has nothing to contribute to the context.
var None = Result{kind: kindNone}

// IsNone reports whether r carries no patch and no response payload.
func (r Result) IsNone() bool { return r.kind == kindNone }

// AsPatch reports whether r is a context patch and returns its map.
func (r Result) AsPatch() (map[string]any, bool) { return r.patch, r.kind == kindPatch }

// Kind-specific accessors used by the response finalizer.
func (r Result) IsHTML() bool           { return r.kind == kindHTML }
func (r Result) IsText() bool           { return r.kind == kindText }
func (r Result) IsFile() bool           { return r.kind == kindFile }
func (r Result) IsJSON() bool           { return r.kind == kindJSON }
func (r Result) HTMLBody() string       { return r.html }
func (r Result) TextBody() string       { return r.text }
func (r Result) FilePath() string       { return r.filePath }
func (r Result) JSONValue() any         { return r.json }
