// Package ctx implements the per-request Context described in spec.md §3:
// a handful of fixed fields owned exclusively by the dispatcher for the
// lifetime of one request, plus a free-form name->value map populated by the
// accumulated return values of preceding middleware.
//
// The response-writing surface (JSON/String/Send/...) is carried over from
// the teacher's ctx.DefaultContext almost verbatim; what changes is the
// addition of the free-form map, the reserved-name merge policy, and the
// Lookup method the argument binder uses to resolve parameter names.
package ctx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Context is the request/response context handed to middleware and
// handlers. It is not safe for concurrent use; a single request owns one
// Context for its lifetime.
type Context struct {
	request  *http.Request
	response http.ResponseWriter

	pathname string
	query    map[string]string
	params   map[string]string
	body     any
	hasBody  bool

	values map[string]any

	// mu guards ended and wroteHeader: the dispatcher's timeout path and
	// the in-flight handler goroutine it raced against (spec.md §5) may
	// touch both concurrently.
	mu          sync.Mutex
	ended       bool
	route       string
	status      int
	wroteHeader bool
	wroteBytes  int
}

// New derives a fresh Context from the incoming request and response
// writer, per spec.md §4.3. params is empty until the route matcher fills
// it in; body is absent until a body-parser middleware installs it.
func New(w http.ResponseWriter, r *http.Request, route string) *Context {
	pathname := r.URL.Path
	return &Context{
		request:  r,
		response: w,
		pathname: pathname,
		query:    parseQuery(r.URL.RawQuery),
		params:   map[string]string{},
		values:   map[string]any{},
		route:    route,
	}
}

// parseQuery collapses duplicate keys to last-seen, per spec.md §3.
func parseQuery(raw string) map[string]string {
	out := map[string]string{}
	if raw == "" {
		return out
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return out
	}
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[len(v)-1]
		}
	}
	return out
}

// --- fixed-field accessors -------------------------------------------------

func (c *Context) Request() *http.Request            { return c.request }
func (c *Context) SetRequest(r *http.Request)         { c.request = r }
func (c *Context) ResponseWriter() http.ResponseWriter { return c.response }

// SetResponseWriter replaces the underlying http.ResponseWriter, for
// middleware that wraps the response stream (compression, buffering).
// Subsequent Send/JSON/String/HTML calls write through the new writer.
func (c *Context) SetResponseWriter(w http.ResponseWriter) { c.response = w }
func (c *Context) Context() context.Context           { return c.request.Context() }

// Pathname is the request path with any query string stripped.
func (c *Context) Pathname() string { return c.pathname }

// Route returns the matched route pattern (e.g. "/users/:id"), empty before
// the route has been resolved.
func (c *Context) Route() string { return c.route }

// SetRoute records the matched route pattern. Used internally by the
// dispatcher once the path matcher has resolved a Route.
func (c *Context) SetRoute(route string) { c.route = route }

// Method returns the HTTP method, e.g. "GET".
func (c *Context) Method() string { return c.request.Method }

// Query returns a single query-string value, or "" if absent.
func (c *Context) Query(key string) string { return c.query[key] }

// QueryMap returns the full parsed query mapping. Callers must not mutate it.
func (c *Context) QueryMap() map[string]string { return c.query }

// Param returns a single path parameter, or "" if absent.
func (c *Context) Param(name string) string { return c.params[name] }

// ParamMap returns the full path-parameter mapping. Callers must not mutate it.
func (c *Context) ParamMap() map[string]string { return c.params }

// SetParams installs the path parameters captured by the route matcher.
// Called once per request, before any route middleware runs.
func (c *Context) SetParams(p map[string]string) { c.params = p }

// Body returns the parsed request body and whether a body-parser middleware
// has populated one yet.
func (c *Context) Body() (any, bool) { return c.body, c.hasBody }

// SetBody installs the parsed request body. Called by body-parser middleware.
func (c *Context) SetBody(v any) {
	c.body = v
	c.hasBody = true
}

// Ended reports whether the response has been finalized.
func (c *Context) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

// End marks the response as finalized. Once set, no further response writes
// are permitted; the dispatcher and finalizer are the only normal callers.
func (c *Context) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ended = true
}

// --- free-form map ----------------------------------------------------------

// Get returns a value previously merged into the free-form map by name.
func (c *Context) Get(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Set writes name directly into the free-form map, bypassing the
// first-writer-wins merge policy. Reserved names are rejected silently
// (no-op), matching the invariant that they are never written by merge.
func (c *Context) Set(name string, value any) {
	if IsReserved(name) {
		return
	}
	c.values[name] = value
}

// Lookup resolves a binder-requested name: first the free-form map, then the
// fixed fields named "params", "query", "body", "pathname", "request",
// "response" (spec.md §4.2's binding rule). It never indexes into the
// fixed-field maps by name — only the literal fixed-field name itself
// resolves them as a whole.
func (c *Context) Lookup(name string) (any, bool) {
	if v, ok := c.values[name]; ok {
		return v, true
	}
	switch name {
	case FieldParams:
		return c.params, true
	case FieldQuery:
		return c.query, true
	case FieldBody:
		if c.hasBody {
			return c.body, true
		}
		return nil, false
	case FieldPathname:
		return c.pathname, true
	case FieldRequest:
		return c.request, true
	case FieldResponse:
		return c.response, true
	}
	return nil, false
}

// MergePatch applies the merge policy from spec.md §3.3 to m: each key is
// written into the free-form map unless it is reserved or already present
// with a defined value (first writer wins).
func (c *Context) MergePatch(m map[string]any) {
	for k, v := range m {
		if IsReserved(k) {
			continue
		}
		if _, exists := c.values[k]; exists {
			continue
		}
		c.values[k] = v
	}
}

// MirrorParams implements the GET/DELETE path-parameter mirror rule: each
// path parameter is copied into the free-form map under its own name unless
// already present there.
func (c *Context) MirrorParams() {
	for k, v := range c.params {
		if IsReserved(k) {
			continue
		}
		if _, exists := c.values[k]; exists {
			continue
		}
		c.values[k] = v
	}
}

// MirrorBodyKeys implements the non-GET/DELETE body-key mirror rule: when
// the parsed body is a string-keyed mapping, its keys are copied into the
// free-form map subject to the same non-overwrite and reserved-name rules.
// Bodies that are not mappings (e.g. a text payload) are left alone — spec.md
// §9 leaves that case explicitly undefined and this implementation treats it
// as a no-op.
func (c *Context) MirrorBodyKeys() {
	if !c.hasBody {
		return
	}
	m, ok := c.body.(map[string]any)
	if !ok {
		return
	}
	for k, v := range m {
		if IsReserved(k) {
			continue
		}
		if _, exists := c.values[k]; exists {
			continue
		}
		c.values[k] = v
	}
}

// --- response writing --------------------------------------------------------

var jsonBufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// WroteHeader reports whether the response has already been claimed by a
// write (header sent, or about to be). Safe to call concurrently with
// claim, per the request-timeout race described on claim.
func (c *Context) WroteHeader() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wroteHeader
}

// claim is the single gate every response-writing method passes through.
// It returns true to exactly one caller; every later caller — including a
// concurrent one — gets false and must not touch the response. This is
// what makes the finalizer's "never send a second response" guarantee
// (spec.md §4.6, §8) hold even when a request-timeout write races the
// handler goroutine still finishing its own write (spec.md §5's deadline
// semantics: "any further response write is suppressed").
func (c *Context) claim() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wroteHeader {
		return false
	}
	c.wroteHeader = true
	return true
}

// Header sets a response header. Has no effect after the header is written.
func (c *Context) Header(key, value string) { c.response.Header().Set(key, value) }

// Status stages the response status code; returns c for chaining.
func (c *Context) Status(code int) *Context {
	c.status = code
	return c
}

// StatusCode returns the status that will be (or was) written.
func (c *Context) StatusCode() int {
	if c.status != 0 {
		return c.status
	}
	if c.WroteHeader() {
		return http.StatusOK
	}
	return 0
}

// JSON serializes v and writes it with Content-Type application/json.
// Defaults to status 200 if Status was never called.
func (c *Context) JSON(v any) error {
	buf := jsonBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer jsonBufPool.Put(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		if c.claim() {
			c.response.WriteHeader(http.StatusInternalServerError)
		}
		return err
	}
	b := buf.Bytes()
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if !c.claim() {
		return nil
	}
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Header("Content-Length", strconv.Itoa(len(b)))
	c.response.WriteHeader(c.status)
	n, err := c.response.Write(b)
	c.wroteBytes += n
	return err
}

// String writes a text/plain response with the given status and body.
func (c *Context) String(status int, body string) error {
	if !c.claim() {
		return nil
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Content-Length", strconv.Itoa(len(body)))
	c.response.WriteHeader(status)
	n, err := io.WriteString(c.response, body)
	c.wroteBytes += n
	return err
}

// HTML writes a text/html response with the given status and body.
func (c *Context) HTML(status int, body string) error {
	if !c.claim() {
		return nil
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Content-Length", strconv.Itoa(len(body)))
	c.response.WriteHeader(status)
	n, err := io.WriteString(c.response, body)
	c.wroteBytes += n
	return err
}

// Send writes raw bytes with the given status and content type. If
// contentType is empty, no Content-Type header is set.
func (c *Context) Send(status int, contentType string, b []byte) (int, error) {
	if !c.claim() {
		return 0, nil
	}
	if contentType != "" {
		c.Header("Content-Type", contentType)
	}
	c.Header("Content-Length", strconv.Itoa(len(b)))
	c.response.WriteHeader(status)
	n, err := c.response.Write(b)
	c.wroteBytes += n
	return n, err
}

// Redirect sends a redirect response.
func (c *Context) Redirect(status int, url string) error {
	if !c.claim() {
		return nil
	}
	c.Header("Location", url)
	c.response.WriteHeader(status)
	return nil
}

// NotFound writes a 404 with an optional message (defaults to "Not Found").
func (c *Context) NotFound(message ...string) error {
	return c.String(http.StatusNotFound, firstOr(message, "Not Found"))
}

// InternalServerError writes a 500 with an optional message.
func (c *Context) InternalServerError(message ...string) error {
	return c.String(http.StatusInternalServerError, firstOr(message, "Internal Server Error"))
}

// BadRequest writes a 400 with an optional message.
func (c *Context) BadRequest(message ...string) error {
	return c.String(http.StatusBadRequest, firstOr(message, "Bad Request"))
}

func firstOr(vals []string, def string) string {
	if len(vals) > 0 {
		return vals[0]
	}
	return def
}

// SetCookie sets a cookie on the response.
func (c *Context) SetCookie(cookie *http.Cookie) { http.SetCookie(c.response, cookie) }

// GetCookie retrieves a cookie from the request by name.
func (c *Context) GetCookie(name string) (*http.Cookie, error) { return c.request.Cookie(name) }

// ClearCookie expires a cookie immediately.
func (c *Context) ClearCookie(name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxAge:   -1,
		HTTPOnly: true,
	})
}

// ParamInt parses a path parameter as int, returning def (or 0) on missing
// or malformed input.
func (c *Context) ParamInt(name string, def ...int) int {
	return parseIntDefault(c.Param(name), def)
}

// QueryInt parses a query parameter as int, returning def (or 0) on missing
// or malformed input.
func (c *Context) QueryInt(key string, def ...int) int {
	return parseIntDefault(c.Query(key), def)
}

func parseIntDefault(s string, def []int) int {
	fallback := 0
	if len(def) > 0 {
		fallback = def[0]
	}
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
