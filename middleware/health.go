// Health check endpoint registration.
package middleware

import (
	"path"
	"strings"
	"time"

	"github.com/ignite-go/ignite/app"
	"github.com/ignite-go/ignite/ctx"
)

// HealthConfig configures a health check endpoint.
type HealthConfig struct {
	// Path is the health check endpoint path. Default "/health".
	Path string
	// Handler handles health check requests. If nil, a default handler
	// returning {"status": "ok"} is used.
	Handler func(c *ctx.Context) ctx.Result
	// SanitizePath normalizes Path (collapses "//", ensures a leading "/").
	// Default true.
	SanitizePath bool
	// IncludeTimestamp adds a timestamp to the default response. Ignored
	// when Handler is set.
	IncludeTimestamp bool
}

// DefaultHealthConfig returns the default health check configuration.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		Path:         "/health",
		SanitizePath: true,
	}
}

func (cfg HealthConfig) withDefaults() HealthConfig {
	if cfg.Path == "" {
		cfg.Path = "/health"
	}
	if cfg.SanitizePath {
		sanitized := path.Clean(cfg.Path)
		if !strings.HasPrefix(sanitized, "/") {
			sanitized = "/" + sanitized
		}
		cfg.Path = sanitized
	}
	if cfg.Handler == nil {
		includeTimestamp := cfg.IncludeTimestamp
		cfg.Handler = func(c *ctx.Context) ctx.Result {
			body := map[string]any{"status": "ok"}
			if includeTimestamp {
				body["timestamp"] = time.Now().UTC().Format(time.RFC3339)
			}
			return ctx.JSON(body)
		}
	}
	return cfg
}

// Health returns a handler answering health check requests, for direct
// registration: a.GET(cfg.Path, middleware.Health(cfg)).
func Health(cfgs ...HealthConfig) func(*ctx.Context) ctx.Result {
	cfg := DefaultHealthConfig()
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	cfg = cfg.withDefaults()
	return cfg.Handler
}

// RegisterHealth registers cfg's health check handler on both GET and HEAD
// for cfg.Path against r, fixing the "registered anew on every request"
// shape a middleware-based health check would otherwise require: a health
// endpoint is a route, registered once at startup, not per-request.
func RegisterHealth(r Router, cfgs ...HealthConfig) {
	cfg := DefaultHealthConfig()
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	cfg = cfg.withDefaults()
	r.GET(cfg.Path, cfg.Handler)
	r.HEAD(cfg.Path, cfg.Handler)
}

// Router is the minimal registration surface RegisterHealth needs; both
// *app.App and *app.Group satisfy it.
type Router interface {
	GET(pattern string, handler any, opts ...app.RouteOption)
	HEAD(pattern string, handler any, opts ...app.RouteOption)
}
