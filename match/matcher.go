// Package match implements the method-partitioned path matcher: a small
// radix tree per HTTP method that compiles ":name" patterns and resolves a
// request path to whatever opaque value was registered against it, plus the
// path parameters captured along the way.
//
// The tree shape is grounded in the node/children-slice matchers found
// across the example corpus (quokka's Router.root, octo's node[V]); the
// method-partitioned "one tree per verb" layout and the OPTIONS sentinel are
// specific to this framework's contract.
package match

import (
	"fmt"
	"strings"
)

// validParamName reports whether name is a Go-style identifier
// ([A-Za-z_][A-Za-z0-9_]*), used to validate ":name" segments at registration.
func validParamName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// InvalidRouteError is returned by Register when a pattern is empty or
// carries an illegal parameter name.
type InvalidRouteError struct {
	Pattern string
	Reason  string
}

func (e *InvalidRouteError) Error() string {
	return fmt.Sprintf("match: invalid route %q: %s", e.Pattern, e.Reason)
}

type node struct {
	children   map[string]*node
	paramChild *node
	paramName  string
	store      any
	hasStore   bool
}

func newNode() *node { return &node{children: make(map[string]*node)} }

// Matcher is a method-partitioned radix tree of path patterns.
// Zero value is not usable; construct with New.
type Matcher struct {
	trees map[string]*node
	// any is a merged, store-less tree used only to answer "does some
	// method have a route registered at this path", for the OPTIONS
	// sentinel (Result.EmptyRoute).
	any *node
}

// New returns an empty Matcher.
func New() *Matcher {
	return &Matcher{trees: make(map[string]*node), any: newNode()}
}

// normalize strips a single insignificant trailing slash. The root path is
// left untouched so that "/" always denotes the root segment list (empty).
func normalize(p string) string {
	if p != "/" && strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

func splitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Register installs pattern under method with store as the opaque payload
// returned on a successful match. Re-registering the same (method, pattern)
// structure — including under a different parameter name — replaces the
// prior registration; last registration wins.
func (m *Matcher) Register(method, pattern string, store any) error {
	if pattern == "" {
		return &InvalidRouteError{Pattern: pattern, Reason: "empty pattern"}
	}
	segs := splitSegments(normalize(pattern))
	for _, s := range segs {
		if strings.HasPrefix(s, ":") && !validParamName(s[1:]) {
			return &InvalidRouteError{Pattern: pattern, Reason: "illegal parameter name " + s}
		}
	}

	method = strings.ToUpper(method)
	tree, ok := m.trees[method]
	if !ok {
		tree = newNode()
		m.trees[method] = tree
	}
	insert(tree, segs, store)
	insert(m.any, segs, struct{}{})
	return nil
}

func insert(root *node, segs []string, store any) {
	n := root
	for _, s := range segs {
		if strings.HasPrefix(s, ":") {
			name := s[1:]
			if n.paramChild == nil {
				n.paramChild = newNode()
			}
			n.paramChild.paramName = name
			n = n.paramChild
			continue
		}
		child, ok := n.children[s]
		if !ok {
			child = newNode()
			n.children[s] = child
		}
		n = child
	}
	n.store = store
	n.hasStore = true
}

// Result is the outcome of a successful Match.
type Result struct {
	Store  any
	Params map[string]string
	// EmptyRoute is true when the lookup matched only the OPTIONS sentinel:
	// some other method owns this path but OPTIONS itself was never
	// registered. Store is nil in this case.
	EmptyRoute bool
}

// Match resolves method and path (path must already have any query string
// stripped) to a Result, or reports no match via ok=false.
func (m *Matcher) Match(method, path string) (Result, bool) {
	method = strings.ToUpper(method)
	segs := splitSegments(normalize(path))

	if tree, ok := m.trees[method]; ok {
		params := map[string]string{}
		if n := find(tree, segs, params); n != nil && n.hasStore {
			return Result{Store: n.store, Params: params}, true
		}
	}

	if method == "OPTIONS" {
		params := map[string]string{}
		if n := find(m.any, segs, params); n != nil && n.hasStore {
			return Result{EmptyRoute: true, Params: params}, true
		}
	}
	return Result{}, false
}

// find walks segs against n, preferring literal children and backtracking
// into the parametric child when a literal branch dead-ends. params is
// populated (URL-decoded) as parametric segments are consumed.
func find(n *node, segs []string, params map[string]string) *node {
	if len(segs) == 0 {
		return n
	}
	head, rest := segs[0], segs[1:]

	if child, ok := n.children[head]; ok {
		snapshot := cloneParams(params)
		if res := find(child, rest, params); res != nil {
			return res
		}
		restoreParams(params, snapshot)
	}

	if n.paramChild != nil {
		params[n.paramChild.paramName] = decodeSegment(head)
		if res := find(n.paramChild, rest, params); res != nil {
			return res
		}
		delete(params, n.paramChild.paramName)
	}

	return nil
}

func cloneParams(p map[string]string) map[string]string {
	cp := make(map[string]string, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}

func restoreParams(p, snapshot map[string]string) {
	for k := range p {
		if _, ok := snapshot[k]; !ok {
			delete(p, k)
		}
	}
	for k, v := range snapshot {
		p[k] = v
	}
}
