// Package app assembles the path matcher, argument binder, middleware
// runner, route registry, request dispatcher, response finalizer, route
// cache, and worker-pool/shutdown lifecycle into one HTTP application,
// per spec.md §4.
//
// The public surface (the App type, route-registration verbs, Group,
// Use/decorate/hook methods) is grounded in goflash-flash/app: the same
// shape of registration methods and error handler plumbing — generalized
// from httprouter + a flattened ctx.Ctx handler signature to this
// framework's name-directed bind.Binder handlers. Each request gets a
// freshly allocated ctx.Context, and a path registered only under other
// methods is answered with 404, not 405.
package app

import (
	"net/http"
	"time"

	"github.com/ignite-go/ignite/ctx"
)

// RequestHook runs in registration order before routing; returning a
// non-nil error is treated as a dispatch error (spec.md §4.6 step 3).
type RequestHook func(*ctx.Context) error

// ResponseHook observes the handler's return value before the default
// finalizer runs. Returning handled=true tells the dispatcher the hook
// already wrote (or deliberately suppressed) the response, skipping
// default finalization (spec.md §4.6 step 10).
type ResponseHook func(*ctx.Context, ctx.Result) (handled bool)

// ErrorHook observes an error raised anywhere in the dispatch pipeline. A
// hook that writes a response must call c.End() itself; an error raised by
// the hook itself is logged but never replaces the original error
// (spec.md §4.6's error-handling boundary).
type ErrorHook func(*ctx.Context, error)

// ErrorHandler is the terminal error handler invoked when no ErrorHook
// ends the response.
type ErrorHandler func(*ctx.Context, error)

// FileResponder serves a ctx.File(path) Result. Static mounts a
// directory-backed implementation; without one registered, a File result
// finalizes as 501 per spec.md §4.7.
type FileResponder interface {
	ServeFile(w http.ResponseWriter, r *http.Request, path string) error
}

// CORSPreflightResponder answers an OPTIONS request that didn't match any
// registered route. Handle returns true if it wrote a response; a false
// return falls through to the dispatcher's default 204 (spec.md §4.6's
// "OPTIONS without a matching route still yields 204").
// middleware.NewCORSPreflightResponder is the bundled implementation.
type CORSPreflightResponder interface {
	Handle(c *ctx.Context) (handled bool)
}

// RouteConfig carries the per-route options spec.md §6 calls "cacheTTL"
// and "schema".
type RouteConfig struct {
	// CacheTTL, when non-zero, enables the route-level response cache for
	// GET requests to this route (spec.md §4.8).
	CacheTTL time.Duration
	// Schema is opaque, passed through to the serializer the finalizer
	// selects for this route (spec.md §4.7); nil uses the general
	// serializer.
	Schema any
	// Validate runs github.com/go-playground/validator/v10 struct tags
	// against the bound input before the handler/middleware executes.
	Validate bool
}

// RouteOption mutates a RouteConfig; passed to the method-registration
// verbs (GET, POST, ...).
type RouteOption func(*RouteConfig)

// WithCacheTTL enables the response cache for this route.
func WithCacheTTL(ttl time.Duration) RouteOption {
	return func(c *RouteConfig) { c.CacheTTL = ttl }
}

// WithSchema attaches an opaque schema value the serializer may consult.
func WithSchema(schema any) RouteOption {
	return func(c *RouteConfig) { c.Schema = schema }
}

// WithValidation enables validator/v10 struct-tag validation on this
// route's handler input.
func WithValidation() RouteOption {
	return func(c *RouteConfig) { c.Validate = true }
}
