package app

import "net/http"

// RouteBuilder is the fluent registration surface spec.md §6 describes:
// `route(path) → builder`, exposing `middleware(fn...)` (accumulates) and
// one verb method per HTTP method, each taking a handler and optional
// RouteOptions (this framework's rendering of the spec's "(handler)" /
// "(config, handler)" two-arity call form).
type RouteBuilder struct {
	app        *App
	pattern    string
	middleware []any
}

// Route starts a fluent registration for pattern.
func (a *App) Route(pattern string) *RouteBuilder {
	return &RouteBuilder{app: a, pattern: pattern}
}

// Middleware accumulates middleware applied to every verb registered
// through this builder, ahead of the app's global middleware having
// already run.
func (b *RouteBuilder) Middleware(mw ...any) *RouteBuilder {
	b.middleware = append(b.middleware, mw...)
	return b
}

func (b *RouteBuilder) register(method string, handler any, opts []RouteOption) *RouteBuilder {
	if _, err := b.app.handle(method, b.pattern, handler, b.middleware, opts); err != nil {
		panic(err)
	}
	return b
}

// GET registers handler for GET requests on this builder's pattern.
func (b *RouteBuilder) GET(handler any, opts ...RouteOption) *RouteBuilder {
	return b.register(http.MethodGet, handler, opts)
}

// POST registers handler for POST requests on this builder's pattern.
func (b *RouteBuilder) POST(handler any, opts ...RouteOption) *RouteBuilder {
	return b.register(http.MethodPost, handler, opts)
}

// PUT registers handler for PUT requests on this builder's pattern.
func (b *RouteBuilder) PUT(handler any, opts ...RouteOption) *RouteBuilder {
	return b.register(http.MethodPut, handler, opts)
}

// DELETE registers handler for DELETE requests on this builder's pattern.
func (b *RouteBuilder) DELETE(handler any, opts ...RouteOption) *RouteBuilder {
	return b.register(http.MethodDelete, handler, opts)
}
