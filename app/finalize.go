package app

import (
	"encoding/json"
	"net/http"

	"github.com/ignite-go/ignite/ctx"
	"github.com/ignite-go/ignite/httperr"
)

// finalize inspects result and writes exactly one response, per spec.md
// §4.7. It is a no-op if the context was already ended (a handler that
// wrote its own response directly, or the timeout path winning the race
// described in ctx.Context.claim).
func (a *App) finalize(c *ctx.Context, route *Route, result ctx.Result) {
	if c.Ended() {
		return
	}
	defer c.End()

	if result.IsFile() {
		a.finalizeFile(c, result.FilePath())
		return
	}

	status, contentType, body, err := a.render(route, result)
	if err != nil {
		sf := httperr.SerializationFailure()
		_ = c.Status(sf.Status).JSON(map[string]string{"error": sf.Message})
		return
	}
	c.Status(status)
	_, _ = c.Send(status, contentType, body)
}

func (a *App) finalizeFile(c *ctx.Context, path string) {
	if a.fileResp == nil {
		_ = c.Status(http.StatusNotImplemented).JSON(map[string]string{"error": "file responder not registered"})
		return
	}
	if err := a.fileResp.ServeFile(c.ResponseWriter(), c.Request(), path); err != nil {
		a.logger.Error("file responder failed", "error", err, "path", path)
	}
}

// render converts a non-file Result into (status, content-type, body), the
// shape both the direct-invocation path and the route cache's compute
// function need: the cache stores exactly these serialized bytes and their
// content type, per spec.md §4.8.
func (a *App) render(route *Route, result ctx.Result) (status int, contentType string, body []byte, err error) {
	switch {
	case result.IsHTML():
		return http.StatusOK, "text/html; charset=utf-8", []byte(result.HTMLBody()), nil
	case result.IsText():
		return http.StatusOK, "text/plain; charset=utf-8", []byte(result.TextBody()), nil
	default:
		var payload any
		if result.IsJSON() {
			payload = result.JSONValue()
		} else if patch, ok := result.AsPatch(); ok {
			payload = patch
		}
		if route != nil && route.Config.Schema != nil {
			payload = applySchema(route.Config.Schema, payload)
		}
		b, jerr := json.Marshal(payload)
		if jerr != nil {
			return 0, "", nil, jerr
		}
		return http.StatusOK, "application/json; charset=utf-8", b, nil
	}
}

// applySchema is the seam for a schema-aware serializer (spec.md §4.7: "If
// the Route carries a schema, the schema-aware serializer is used"). This
// framework ships no schema language of its own — schema is opaque, and by
// default passes the payload through unchanged; a plugin can install a
// richer serializer by implementing the Serialize(any) any interface.
func applySchema(schema any, payload any) any {
	if transformer, ok := schema.(interface{ Serialize(any) any }); ok {
		return transformer.Serialize(payload)
	}
	return payload
}
