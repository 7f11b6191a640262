package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ignite-go/ignite/bind"
	"github.com/ignite-go/ignite/ctx"
	"github.com/ignite-go/ignite/httperr"
	"github.com/ignite-go/ignite/obslog"
	"github.com/ignite-go/ignite/respcache"
)

// ServeHTTP implements http.Handler: acquire the concurrency gate, then run
// the twelve-step dispatch of spec.md §4.6, releasing the gate in a defer
// that runs regardless of how dispatch returns (spec.md §5: "released in a
// finally clause that runs regardless of success, failure, or panic").
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ok := a.rawHandlers[rawKey(r.Method, r.URL.Path)]; ok {
		h.ServeHTTP(w, r)
		return
	}

	if err := a.gate.Acquire(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	defer a.gate.Release()

	a.dispatch(w, r)
}

func newRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// dispatch runs one request end to end. The handler/middleware chain
// executes on a background goroutine so that a deadline expiry (spec.md §5)
// can still finalize a 408 while "the in-flight task is allowed to
// complete" in the background, per the cancellation contract.
func (a *App) dispatch(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = newRequestID()
	}

	deadline, cancel := context.WithTimeout(r.Context(), a.requestTimeout)
	defer cancel()

	reqLogger := a.logger.With("request_id", reqID, "method", r.Method, "path", r.URL.Path)
	r = r.WithContext(obslog.WithLogger(deadline, reqLogger))

	c := ctx.New(w, r, "")
	c.Header("X-Request-ID", reqID)
	c.MergePatch(a.decorationSnapshot())

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.runPipeline(c)
	}()

	select {
	case <-done:
	case <-deadline.Done():
		if deadline.Err() == context.DeadlineExceeded {
			_ = c.Status(http.StatusRequestTimeout).JSON(map[string]string{"error": "Request timeout"})
			c.End()
			reqLogger.Warn("request deadline exceeded")
		}
	}
}

// runPipeline is steps 3-12 of spec.md §4.6, wrapped in the single error
// boundary §4.6's final paragraph describes. A panic is treated the same
// as a returned error (an Application-class failure) rather than crashing
// the goroutine it runs on.
func (a *App) runPipeline(c *ctx.Context) {
	err := a.runPipelineCatchingPanic(c)
	if err == nil {
		return
	}
	a.handleError(c, err)
}

func (a *App) runPipelineCatchingPanic(c *ctx.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = httperr.Application(e)
			} else {
				err = httperr.Application(nil)
			}
		}
	}()
	return a.runPipelineSteps(c)
}

func (a *App) runPipelineSteps(c *ctx.Context) error {
	spanCtx, span := a.tracer.Start(c.Context(), "ignite.dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("http.method", c.Method()), attribute.String("http.path", c.Pathname()))
	c.SetRequest(c.Request().WithContext(spanCtx))

	// Step 3: onRequest hooks.
	for _, h := range a.onRequest {
		if c.Ended() {
			return nil
		}
		if err := h(c); err != nil {
			return err
		}
	}
	if c.Ended() {
		return nil
	}

	// Step 4: global middleware.
	if err := a.runMiddleware(a.global, c); err != nil {
		return err
	}
	if c.Ended() {
		return nil
	}

	// Step 5: resolve the route.
	resolved, ok := a.registry.Resolve(c.Method(), c.Pathname())
	if !ok {
		if c.Method() == http.MethodOptions {
			if a.corsResp != nil && a.corsResp.Handle(c) {
				c.End()
				return nil
			}
			c.Status(http.StatusNoContent)
			_, _ = c.Send(http.StatusNoContent, "", nil)
			c.End()
			return nil
		}
		c.Status(http.StatusNotFound)
		_ = c.JSON(map[string]string{"error": httperr.NotFound(c.Method(), c.Pathname()).Message})
		c.End()
		return nil
	}
	if resolved.EmptyRoute {
		c.SetParams(resolved.Params)
		_, _ = c.Send(http.StatusNoContent, "", nil)
		c.End()
		return nil
	}

	route := resolved.Route
	c.SetRoute(route.Pattern)
	c.SetParams(resolved.Params)

	// Step 6: mirror params/body per §3.3.
	if c.Method() == http.MethodGet || c.Method() == http.MethodDelete {
		c.MirrorParams()
	} else {
		c.MirrorBodyKeys()
	}

	// Step 7: route middleware.
	if err := a.runMiddleware(route.Middleware, c); err != nil {
		return err
	}
	if c.Ended() {
		return nil
	}

	// Steps 8-9: cache or direct invocation.
	result, err := a.invokeRoute(c, route)
	if err != nil {
		return err
	}
	if c.Ended() {
		return nil
	}

	// Step 10: onResponse hooks.
	handled := false
	for _, h := range a.onResponse {
		if h(c, result) {
			handled = true
		}
	}
	if handled || c.Ended() {
		return nil
	}

	// Step 11: finalize.
	a.finalize(c, route, result)
	return nil
}

// runMiddleware is the middleware runner of spec.md §4.4.
func (a *App) runMiddleware(chain []*bind.Binder, c *ctx.Context) error {
	for _, b := range chain {
		if c.Ended() {
			return nil
		}
		result, err := b.Invoke(c)
		if err != nil {
			return err
		}
		if patch, ok := result.AsPatch(); ok {
			c.MergePatch(patch)
		}
	}
	return nil
}

// cachedEntry is the shape spec.md §4.8 caches: serialized bytes plus the
// content type and status they were rendered with, so a cache hit can be
// written directly without re-invoking the handler.
type cachedEntry struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// invokeRoute implements steps 8-9 of spec.md §4.6: the route cache
// get-or-compute when a TTL is configured for a GET route, otherwise a
// direct handler invocation. On a cache path, the response is written here
// directly and the caller's subsequent finalize step becomes a no-op
// (c.Ended() is already true), matching §4.8's "use its serialized bytes as
// the response payload directly."
func (a *App) invokeRoute(c *ctx.Context, route *Route) (ctx.Result, error) {
	if route.Config.CacheTTL <= 0 || c.Method() != http.MethodGet {
		return route.Handler.Invoke(c)
	}

	key := respcache.Key(c.Method(), route.Pattern, c.QueryMap())
	raw, err := route.cache.GetOrCompute(key, func() ([]byte, error) {
		result, err := route.Handler.Invoke(c)
		if err != nil {
			return nil, err
		}
		status, contentType, body, err := a.render(route, result)
		if err != nil {
			return nil, err
		}
		return json.Marshal(cachedEntry{Status: status, ContentType: contentType, Body: body})
	})
	if err != nil {
		return ctx.Result{}, err
	}

	var entry cachedEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return ctx.Result{}, err
	}
	c.Status(entry.Status)
	_, sendErr := c.Send(entry.Status, entry.ContentType, entry.Body)
	c.End()
	return ctx.Result{}, sendErr
}
