// Package ignite re-exports the framework's primary types so that a
// consumer can import a single path for everyday use while the
// implementation stays split across app/ctx/bind/httperr packages.
package ignite

import (
	"github.com/ignite-go/ignite/app"
	"github.com/ignite-go/ignite/ctx"
)

// App is the application/router. Implements http.Handler.
// Re-exported from app.App.
type App = app.App

// Group is a route group for organizing routes, inheriting its parent's
// middleware and path prefix. Re-exported from app.Group.
type Group = app.Group

// Option configures a new App. Re-exported from app.Option.
type Option = app.Option

// RouteOption configures a single route's cache/validation behavior.
// Re-exported from app.RouteOption.
type RouteOption = app.RouteOption

// Context is the request/response context injected into handlers and
// middleware by name. Re-exported from ctx.Context.
type Context = ctx.Context

// Result is the tagged-union value a handler returns: Patch, HTML, Text,
// File, JSON, or None. Re-exported from ctx.Result.
type Result = ctx.Result

// Plugin is any value that can register itself against an App during
// Start. Re-exported from app.Plugin.
type Plugin = app.Plugin

// RequestHook runs before routing. Re-exported from app.RequestHook.
type RequestHook = app.RequestHook

// ResponseHook observes a handler's result before the default finalizer
// runs. Re-exported from app.ResponseHook.
type ResponseHook = app.ResponseHook

// ErrorHook observes an error on the dispatcher's single error boundary.
// Re-exported from app.ErrorHook.
type ErrorHook = app.ErrorHook

// ErrorHandler is the terminal handler invoked when no error hook has
// ended the response. Re-exported from app.ErrorHandler.
type ErrorHandler = app.ErrorHandler

// New creates a new App with spec-mandated defaults: 100 max concurrency,
// a 30s request timeout, a 30s shutdown timeout, and a stdout JSON logger.
// Re-exported from app.New.
func New(opts ...Option) *App { return app.New(opts...) }
