package app

import "net/http"

// Group organizes a set of routes under a common prefix and a shared
// middleware stack, run as route middleware after the app's global
// middleware.
// Grounded on the teacher's app/group.go; generalized from the
// Handler/Middleware closure chain to accumulating `any` middleware values
// compiled into binders at registration time.
type Group struct {
	app        *App
	prefix     string
	middleware []any
}

// Group creates a route group rooted at prefix, with optional middleware
// applied to every route registered on it (and on any nested group).
func (a *App) Group(prefix string, mw ...any) *Group {
	return &Group{app: a, prefix: cleanPath(prefix), middleware: mw}
}

// Use appends middleware to the group, applied in the order added.
func (g *Group) Use(mw ...any) { g.middleware = append(g.middleware, mw...) }

// Group creates a nested group inheriting the parent's prefix and
// middleware, plus whatever additional middleware is given here.
func (g *Group) Group(prefix string, mw ...any) *Group {
	child := &Group{app: g.app, prefix: joinPath(g.prefix, prefix)}
	child.middleware = append(child.middleware, g.middleware...)
	child.middleware = append(child.middleware, mw...)
	return child
}

func (g *Group) handle(method, p string, handler any, opts []RouteOption, mws []any) {
	all := make([]any, 0, len(g.middleware)+len(mws))
	all = append(all, g.middleware...)
	all = append(all, mws...)
	if _, err := g.app.handle(method, joinPath(g.prefix, p), handler, all, opts); err != nil {
		panic(err)
	}
}

// GET registers a handler for GET requests under the group's prefix.
func (g *Group) GET(p string, handler any, opts ...RouteOption) { g.handle(http.MethodGet, p, handler, opts, nil) }

// POST registers a handler for POST requests under the group's prefix.
func (g *Group) POST(p string, handler any, opts ...RouteOption) {
	g.handle(http.MethodPost, p, handler, opts, nil)
}

// PUT registers a handler for PUT requests under the group's prefix.
func (g *Group) PUT(p string, handler any, opts ...RouteOption) {
	g.handle(http.MethodPut, p, handler, opts, nil)
}

// PATCH registers a handler for PATCH requests under the group's prefix.
func (g *Group) PATCH(p string, handler any, opts ...RouteOption) {
	g.handle(http.MethodPatch, p, handler, opts, nil)
}

// DELETE registers a handler for DELETE requests under the group's prefix.
func (g *Group) DELETE(p string, handler any, opts ...RouteOption) {
	g.handle(http.MethodDelete, p, handler, opts, nil)
}

// OPTIONS registers a handler for OPTIONS requests under the group's prefix.
func (g *Group) OPTIONS(p string, handler any, opts ...RouteOption) {
	g.handle(http.MethodOptions, p, handler, opts, nil)
}

// HEAD registers a handler for HEAD requests under the group's prefix.
func (g *Group) HEAD(p string, handler any, opts ...RouteOption) {
	g.handle(http.MethodHead, p, handler, opts, nil)
}
