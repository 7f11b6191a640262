package ctx

// Reserved names in the free-form context map. Middleware merges never write
// these; they are addressed only through the fixed-field accessors.
const (
	FieldRequest  = "request"
	FieldResponse = "response"
	FieldParams   = "params"
	FieldQuery    = "query"
	FieldBody     = "body"
	FieldEnded    = "ended"
	// FieldPathname is not a reserved write-protected key (middleware never
	// returns it in practice), but it is one of the fixed fields the binder
	// may resolve a parameter name against.
	FieldPathname = "pathname"
)

// reserved is the set consulted by the merge policy (§3, §8: "Reserved keys
// ... are never overwritten in the free-form context map by any middleware
// return").
var reserved = map[string]bool{
	FieldRequest:  true,
	FieldResponse: true,
	FieldParams:   true,
	FieldQuery:    true,
	FieldBody:     true,
	FieldEnded:    true,
}

// IsReserved reports whether name is a reserved context-map key.
func IsReserved(name string) bool { return reserved[name] }
