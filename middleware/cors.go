package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ignite-go/ignite/app"
	"github.com/ignite-go/ignite/ctx"
)

// CORSConfig holds configuration for the CORS middleware.
//
// Origins, Methods, and Headers control allowed cross-origin requests.
// Expose lists headers exposed to the browser. Credentials enables cookies.
// MaxAge sets preflight cache duration (seconds).
//
// Security considerations:
//   - Use specific origins rather than "*" when possible
//   - Only expose headers that are necessary for your application
//   - Be cautious with Credentials=true as it allows cookies in cross-origin requests
//   - Set appropriate MaxAge to balance security and performance
type CORSConfig struct {
	// Origins specifies allowed origins for cross-origin requests.
	// If empty, no Access-Control-Allow-Origin header is set.
	// Use "*" to allow all origins (not recommended for production).
	Origins []string
	// Methods specifies allowed HTTP methods for cross-origin requests.
	// If empty, defaults to common methods: GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS.
	Methods []string
	// Headers specifies allowed request headers for cross-origin requests.
	Headers []string
	// Expose specifies response headers that browsers can access via JavaScript.
	Expose []string
	// Credentials enables sending cookies and authorization headers in cross-origin requests.
	// Cannot be combined with Origins: ["*"].
	Credentials bool
	// MaxAge sets the duration (in seconds) that browsers can cache preflight responses.
	MaxAge int
}

type corsHeaders struct {
	origins           []string
	hasWildcard       bool
	allowedMethods    []string
	allowedMethodsStr string
	allowedHeaders    []string
	allowedHeadersStr string
	exposeHeaders     string
	credentials       bool
	maxAge            int
}

func newCORSHeaders(cfg CORSConfig) *corsHeaders {
	allowedMethods := uniqOrDefault(cfg.Methods, []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"})
	hasWildcard := false
	for _, origin := range cfg.Origins {
		if origin == "*" {
			hasWildcard = true
			break
		}
	}
	if hasWildcard && cfg.Credentials {
		panic("CORS: cannot use wildcard origin (*) with credentials=true for security reasons")
	}
	return &corsHeaders{
		origins:           cfg.Origins,
		hasWildcard:       hasWildcard,
		allowedMethods:    allowedMethods,
		allowedMethodsStr: strings.Join(allowedMethods, ", "),
		allowedHeaders:    cfg.Headers,
		allowedHeadersStr: strings.Join(cfg.Headers, ", "),
		exposeHeaders:     strings.Join(cfg.Expose, ", "),
		credentials:       cfg.Credentials,
		maxAge:            cfg.MaxAge,
	}
}

func (h *corsHeaders) allowedOrigin(origin string) string {
	if len(h.origins) == 0 {
		return ""
	}
	if h.hasWildcard {
		return "*"
	}
	if origin == "" || origin == "null" {
		return ""
	}
	for _, allowed := range h.origins {
		if origin == allowed {
			return origin
		}
	}
	return ""
}

// setCommonHeaders writes the headers that go out on every response
// regardless of method, per the allowed origin for this request's Origin
// header.
func (h *corsHeaders) setCommonHeaders(c *ctx.Context) {
	origin := c.Request().Header.Get("Origin")
	allowedOrigin := h.allowedOrigin(origin)
	if allowedOrigin != "" {
		c.Header("Access-Control-Allow-Origin", allowedOrigin)
	}
	if h.credentials && allowedOrigin != "*" {
		c.Header("Access-Control-Allow-Credentials", "true")
	}
	if h.exposeHeaders != "" {
		c.Header("Access-Control-Expose-Headers", h.exposeHeaders)
	}
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
}

// respondToPreflight validates and answers an OPTIONS request carrying
// Access-Control-Request-Method, writing directly to c and ending it.
// Returns false if the request was OPTIONS but not a CORS preflight (no
// Access-Control-Request-Method header), in which case the caller decides
// what to do next.
func (h *corsHeaders) respondToPreflight(c *ctx.Context) bool {
	requestMethod := c.Request().Header.Get("Access-Control-Request-Method")
	if requestMethod == "" {
		return false
	}

	methodAllowed := false
	for _, method := range h.allowedMethods {
		if requestMethod == method {
			methodAllowed = true
			break
		}
	}
	if !methodAllowed {
		_ = c.Status(http.StatusForbidden).String(http.StatusForbidden, "Method not allowed")
		c.End()
		return true
	}

	if requestHeaders := c.Request().Header.Get("Access-Control-Request-Headers"); requestHeaders != "" && len(h.allowedHeaders) > 0 {
		for _, reqHeader := range strings.Split(requestHeaders, ",") {
			reqHeader = strings.TrimSpace(reqHeader)
			headerAllowed := false
			for _, allowedHeader := range h.allowedHeaders {
				if strings.EqualFold(reqHeader, allowedHeader) {
					headerAllowed = true
					break
				}
			}
			if !headerAllowed {
				_ = c.Status(http.StatusForbidden).String(http.StatusForbidden, "Header not allowed")
				c.End()
				return true
			}
		}
	}

	if h.allowedMethodsStr != "" {
		c.Header("Access-Control-Allow-Methods", h.allowedMethodsStr)
	}
	if h.allowedHeadersStr != "" {
		c.Header("Access-Control-Allow-Headers", h.allowedHeadersStr)
	}
	if h.maxAge > 0 {
		c.Header("Access-Control-Max-Age", strconv.Itoa(h.maxAge))
	}
	_ = c.Status(http.StatusNoContent).String(http.StatusNoContent, "")
	c.End()
	return true
}

// CORS returns middleware that sets CORS headers on every response and
// answers preflight OPTIONS requests directly. Register it with App.Use so
// it runs ahead of routing (the dispatcher resolves the route after global
// middleware — see dispatch.go's pipeline order), which means it also sees
// OPTIONS requests against paths with no registered route.
//
// Security:
//   - wildcard origin combined with Credentials panics at construction
//   - a preflight requesting a disallowed method or header gets 403, not a
//     silently narrowed allow-list
func CORS(cfg CORSConfig) func(*ctx.Context) ctx.Result {
	h := newCORSHeaders(cfg)
	return func(c *ctx.Context) ctx.Result {
		h.setCommonHeaders(c)
		if c.Method() == http.MethodOptions {
			h.respondToPreflight(c)
		}
		return ctx.None
	}
}

// corsPreflightResponder implements app.CORSPreflightResponder, for callers
// that want CORS preflight handling only on the no-route-matched fallback
// path (dispatch.go) instead of as global middleware — e.g. an app that
// applies per-group CORS configs and wants one default responder for
// everything else.
type corsPreflightResponder struct {
	h *corsHeaders
}

// NewCORSPreflightResponder returns an app.CORSPreflightResponder answering
// preflight requests with cfg's rules, for wiring via
// app.WithCORSPreflightResponder.
func NewCORSPreflightResponder(cfg CORSConfig) app.CORSPreflightResponder {
	return &corsPreflightResponder{h: newCORSHeaders(cfg)}
}

func (r *corsPreflightResponder) Handle(c *ctx.Context) bool {
	r.h.setCommonHeaders(c)
	return r.h.respondToPreflight(c)
}

// uniqOrDefault returns the input slice with duplicates removed, or the
// default if input is empty.
func uniqOrDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	m := map[string]struct{}{}
	res := make([]string, 0, len(v))
	for _, s := range v {
		if _, ok := m[s]; !ok {
			m[s] = struct{}{}
			res = append(res, s)
		}
	}
	return res
}
