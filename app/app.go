package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ignite-go/ignite/bind"
	"github.com/ignite-go/ignite/gate"
	"github.com/ignite-go/ignite/httperr"
	"github.com/ignite-go/ignite/respcache"
	"github.com/ignite-go/ignite/shutdown"
)

// Plugin is any value that can register itself against an App. Register may
// do asynchronous setup; Start drains every registered plugin before the
// server begins accepting connections (spec.md §6).
type Plugin interface {
	Register(a *App, opts any) error
}

// App is the application/router: it owns the route registry, the global
// middleware chain, the hook lists, the concurrency gate, the response
// cache, and the HTTP server lifecycle. It implements http.Handler.
//
// The overall shape (a single ServeHTTP entry point delegating to a
// composed pipeline, setter-style configuration) is
// carried over from the teacher's DefaultApp; what changes is the pipeline
// itself, rebuilt around name-directed binders instead of a composed
// Handler/Middleware closure chain.
type App struct {
	registry *Registry

	global []*bind.Binder

	onRequest  []RequestHook
	onResponse []ResponseHook
	onError    []ErrorHook

	errorHandler ErrorHandler
	fileResp     FileResponder
	corsResp     CORSPreflightResponder

	logger       *slog.Logger
	gate         *gate.Gate
	cacheOptions respcache.Options
	cacheFactory CacheFactory
	tracer       trace.Tracer

	requestTimeout  time.Duration
	shutdownTimeout time.Duration

	decorationsMu sync.RWMutex
	decorations   map[string]any

	plugins []pluginRegistration

	rawHandlers map[string]http.Handler

	clusterRunner ClusterRunner

	server      *http.Server
	shutdownMgr *shutdown.Manager
}

type pluginRegistration struct {
	plugin Plugin
	opts   any
}

// Option configures a new App.
type Option func(*App)

// WithLogger sets the application logger.
func WithLogger(l *slog.Logger) Option { return func(a *App) { a.logger = l } }

// WithMaxConcurrency sets the concurrency gate's limit.
func WithMaxConcurrency(n int) Option { return func(a *App) { a.gate = gate.New(n) } }

// WithRequestTimeout sets the per-request deadline (spec.md §5, default 30s).
func WithRequestTimeout(d time.Duration) Option { return func(a *App) { a.requestTimeout = d } }

// WithShutdownTimeout sets the graceful-shutdown drain timeout (default 30s).
func WithShutdownTimeout(d time.Duration) Option { return func(a *App) { a.shutdownTimeout = d } }

// WithCacheOptions sets the sizing (MaxEntries, MaxValueBytes) every
// cache-enabled route's own response cache is built with; only TTL is
// route-specific (spec.md §4.8).
func WithCacheOptions(opts respcache.Options) Option { return func(a *App) { a.cacheOptions = opts } }

// WithCacheFactory overrides how each cache-enabled route's Store is
// built; the cluster package uses this to back every worker's route cache
// with a respcache.RemoteCache talking to the primary's Coordinator
// instead of a local-only respcache.Cache (spec.md §4.8).
func WithCacheFactory(f CacheFactory) Option { return func(a *App) { a.cacheFactory = f } }

// WithFileResponder registers the collaborator that serves ctx.File(path)
// results (spec.md §4.7); without one, a File result finalizes as 501.
func WithFileResponder(fr FileResponder) Option { return func(a *App) { a.fileResp = fr } }

// WithCORSPreflightResponder installs the collaborator consulted when an
// OPTIONS request matches no registered route (spec.md §1's CORS Non-goal,
// SPEC_FULL.md §12's supplemented collaborator seam).
func WithCORSPreflightResponder(r CORSPreflightResponder) Option {
	return func(a *App) { a.corsResp = r }
}

// WithTracer overrides the tracer used for the dispatcher's per-request
// "ignite.dispatch" span.
func WithTracer(t trace.Tracer) Option { return func(a *App) { a.tracer = t } }

// New returns an App with spec.md's defaults: 100 max concurrency, 30s
// request timeout, 30s shutdown timeout, an unbounded-TTL-off response
// cache, and a stdout JSON logger.
func New(opts ...Option) *App {
	a := &App{
		decorations:     make(map[string]any),
		requestTimeout:  30 * time.Second,
		shutdownTimeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(a)
	}
	a.registry = NewRegistry(a.cacheOptions, a.cacheFactory)
	if a.gate == nil {
		a.gate = gate.New(100)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer("github.com/ignite-go/ignite/app")
	}
	if a.errorHandler == nil {
		a.errorHandler = defaultErrorHandler
	}
	a.shutdownMgr = shutdown.New(a.shutdownTimeout, a.logger)
	return a
}

// Logger returns the configured application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// SetLogger replaces the application logger.
func (a *App) SetLogger(l *slog.Logger) { a.logger = l }

// ShutdownManager returns the graceful-shutdown manager a ClusterRunner's
// primary process listens on directly (spec.md §4.9: "primary sets up ...
// the graceful-shutdown broker"), instead of the per-server Listen wiring
// RunServer/RunServerOn perform for a non-cluster process.
func (a *App) ShutdownManager() *shutdown.Manager { return a.shutdownMgr }

// SetErrorHandler replaces the terminal error handler invoked when no
// onError hook ends the response.
func (a *App) SetErrorHandler(h ErrorHandler) { a.errorHandler = h }

// Use registers global middleware, applied before any route's own
// middleware, in the order added (spec.md §4.4, §5's ordering guarantees).
// Use panics if a handler's shape is invalid, since middleware registration
// happens once at startup and an invalid signature is exactly the
// InvalidRoute-class failure spec.md §7 calls "fatal to startup."
func (a *App) Use(mw ...any) {
	for _, m := range mw {
		b, err := bind.Compile(m)
		if err != nil {
			panic(fmt.Sprintf("app: invalid global middleware: %v", err))
		}
		a.global = append(a.global, b)
	}
}

// OnRequest appends a request hook, run in order before routing.
func (a *App) OnRequest(h RequestHook) { a.onRequest = append(a.onRequest, h) }

// OnResponse appends a response hook, observing the handler's return value
// before the default finalizer runs.
func (a *App) OnResponse(h ResponseHook) { a.onResponse = append(a.onResponse, h) }

// OnError appends an error hook, run in order on the dispatcher's single
// error boundary.
func (a *App) OnError(h ErrorHook) { a.onError = append(a.onError, h) }

// Decorate mounts a read-only named value, visible to every handler/
// middleware binder the same way a free-form context key is (spec.md §6,
// SPEC_FULL §12). Duplicate names fail with httperr.AlreadyDecorated.
func (a *App) Decorate(name string, value any) error {
	a.decorationsMu.Lock()
	defer a.decorationsMu.Unlock()
	if _, exists := a.decorations[name]; exists {
		return httperr.AlreadyDecorated(name)
	}
	a.decorations[name] = value
	return nil
}

func (a *App) decorationSnapshot() map[string]any {
	a.decorationsMu.RLock()
	defer a.decorationsMu.RUnlock()
	out := make(map[string]any, len(a.decorations))
	for k, v := range a.decorations {
		out[k] = v
	}
	return out
}

// Plugin registers p for draining during Start, per spec.md §6: "registration
// may be asynchronous and must complete before the server starts handling
// requests."
func (a *App) Plugin(p Plugin, opts any) {
	a.plugins = append(a.plugins, pluginRegistration{plugin: p, opts: opts})
}

// Mount installs h for every common HTTP method under path, for
// interoperability with stdlib handlers (spec.md §1's "referenced only
// through their interfaces" static/CORS seam, generalized to any
// http.Handler).
func (a *App) Mount(path string, h http.Handler) {
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodHead} {
		a.HandleHTTP(m, path, h)
	}
}

// HandleHTTP mounts a raw http.Handler on one method and path, bypassing
// the binder pipeline entirely. Useful for embedding stdlib-shaped
// handlers (pprof, a reverse proxy, a generated gRPC-gateway mux) without
// adapting them to the name-directed signature.
func (a *App) HandleHTTP(method, path string, h http.Handler) {
	if a.rawHandlers == nil {
		a.rawHandlers = make(map[string]http.Handler)
	}
	a.rawHandlers[rawKey(method, path)] = h
}

func rawKey(method, path string) string { return method + " " + path }

// GET registers a handler for GET requests at pattern.
func (a *App) GET(pattern string, handler any, opts ...RouteOption) { a.mustHandle(http.MethodGet, pattern, handler, nil, opts) }

// POST registers a handler for POST requests at pattern.
func (a *App) POST(pattern string, handler any, opts ...RouteOption) {
	a.mustHandle(http.MethodPost, pattern, handler, nil, opts)
}

// PUT registers a handler for PUT requests at pattern.
func (a *App) PUT(pattern string, handler any, opts ...RouteOption) {
	a.mustHandle(http.MethodPut, pattern, handler, nil, opts)
}

// PATCH registers a handler for PATCH requests at pattern.
func (a *App) PATCH(pattern string, handler any, opts ...RouteOption) {
	a.mustHandle(http.MethodPatch, pattern, handler, nil, opts)
}

// DELETE registers a handler for DELETE requests at pattern.
func (a *App) DELETE(pattern string, handler any, opts ...RouteOption) {
	a.mustHandle(http.MethodDelete, pattern, handler, nil, opts)
}

// OPTIONS registers a handler for OPTIONS requests at pattern.
func (a *App) OPTIONS(pattern string, handler any, opts ...RouteOption) {
	a.mustHandle(http.MethodOptions, pattern, handler, nil, opts)
}

// HEAD registers a handler for HEAD requests at pattern.
func (a *App) HEAD(pattern string, handler any, opts ...RouteOption) {
	a.mustHandle(http.MethodHead, pattern, handler, nil, opts)
}

// ANY registers handler for all common HTTP methods at pattern.
func (a *App) ANY(pattern string, handler any, opts ...RouteOption) {
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodHead} {
		a.mustHandle(m, pattern, handler, nil, opts)
	}
}

// Handle registers handler for a custom HTTP method at pattern.
func (a *App) Handle(method, pattern string, handler any, opts ...RouteOption) {
	a.mustHandle(method, pattern, handler, nil, opts)
}

// mustHandle registers a route and panics on a registration-time failure,
// matching spec.md §7's "InvalidRoute ... fatal to startup."
func (a *App) mustHandle(method, pattern string, handler any, middleware []any, opts []RouteOption) {
	if _, err := a.handle(method, pattern, handler, middleware, opts); err != nil {
		panic(err)
	}
}

func (a *App) handle(method, pattern string, handler any, middleware []any, opts []RouteOption) (*Route, error) {
	var cfg RouteConfig
	for _, o := range opts {
		o(&cfg)
	}
	return a.registry.Register(method, pattern, handler, middleware, cfg)
}
