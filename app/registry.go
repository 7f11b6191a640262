package app

import (
	"strings"

	"github.com/ignite-go/ignite/bind"
	"github.com/ignite-go/ignite/match"
	"github.com/ignite-go/ignite/respcache"
)

// Route is the immutable record the registry installs into the path
// matcher: a (method, pattern) pair with its compiled handler binder, its
// compiled middleware chain, and its route-level config (spec.md GLOSSARY).
//
// cache is this route's own response cache, not a shared one: spec.md §4.8
// ties TTL to the route ("any route with cacheTTL = T"), and respcache.Cache
// carries a single TTL per instance, so each cache-enabled route gets its
// own instance sized from the registry's defaults rather than sharing one
// cache whose TTL couldn't serve two different routes correctly.
type Route struct {
	Method     string
	Pattern    string
	Handler    *bind.Binder
	Middleware []*bind.Binder
	Config     RouteConfig
	cache      respcache.Store
}

// CacheFactory builds the Store backing one cache-enabled route. The
// default builds a local *respcache.Cache; cluster mode overrides it with
// one building *respcache.RemoteCache instances instead, so every worker's
// route cache speaks to the primary's Coordinator (spec.md §4.8).
type CacheFactory func(opts respcache.Options) respcache.Store

// Registry wraps the path matcher with the bind-compilation step spec.md
// §4.5 describes: "compiles binders for handler and each middleware" before
// installing the route as the matcher's opaque store.
type Registry struct {
	matcher      *match.Matcher
	cacheDefault respcache.Options
	cacheFactory CacheFactory
}

// NewRegistry returns an empty Registry. cacheDefault supplies the
// MaxEntries/MaxValueBytes every cache-enabled route's own cache is sized
// with; only TTL varies per route. cacheFactory builds each such route's
// Store; a nil cacheFactory (no WithCacheFactory) defaults to building a
// plain *respcache.Cache per route.
func NewRegistry(cacheDefault respcache.Options, cacheFactory CacheFactory) *Registry {
	if cacheFactory == nil {
		cacheFactory = func(opts respcache.Options) respcache.Store { return respcache.New(opts) }
	}
	return &Registry{matcher: match.New(), cacheDefault: cacheDefault, cacheFactory: cacheFactory}
}

// Register compiles handler and middleware into binders and installs the
// resulting Route under (method, pattern). Re-registering the same
// (method, pattern) replaces the prior Route, per spec.md §4.5.
func (reg *Registry) Register(method, pattern string, handler any, middleware []any, cfg RouteConfig) (*Route, error) {
	var opts []bind.Option
	if cfg.Validate {
		opts = append(opts, bind.WithValidation())
	}

	hb, err := bind.Compile(handler, opts...)
	if err != nil {
		return nil, err
	}

	mbs := make([]*bind.Binder, len(middleware))
	for i, mw := range middleware {
		mb, err := bind.Compile(mw)
		if err != nil {
			return nil, err
		}
		mbs[i] = mb
	}

	route := &Route{
		Method:     strings.ToUpper(method),
		Pattern:    pattern,
		Handler:    hb,
		Middleware: mbs,
		Config:     cfg,
	}
	if cfg.CacheTTL > 0 {
		routeOpts := reg.cacheDefault
		routeOpts.TTL = cfg.CacheTTL
		route.cache = reg.cacheFactory(routeOpts)
	}
	if err := reg.matcher.Register(method, pattern, route); err != nil {
		return nil, err
	}
	return route, nil
}

// Resolved is the outcome of Resolve.
type Resolved struct {
	Route      *Route
	Params     map[string]string
	EmptyRoute bool
}

// Resolve is a thin wrapper over the matcher (spec.md §4.5).
func (reg *Registry) Resolve(method, path string) (Resolved, bool) {
	res, ok := reg.matcher.Match(method, path)
	if !ok {
		return Resolved{}, false
	}
	if res.EmptyRoute {
		return Resolved{Params: res.Params, EmptyRoute: true}, true
	}
	route, _ := res.Store.(*Route)
	return Resolved{Route: route, Params: res.Params}, true
}
