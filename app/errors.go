package app

import (
	"net/http"

	"github.com/ignite-go/ignite/ctx"
	"github.com/ignite-go/ignite/httperr"
)

// defaultErrorHandler writes the canonical 500 payload from spec.md §6,
// `{"error": <message>}`, unless a response has already started. Adapted
// from the teacher's app/errors.go defaultErrorHandler, generalized from a
// fixed status-text body to the httperr-aware JSON payload this framework's
// wire contract requires.
func defaultErrorHandler(c *ctx.Context, err error) {
	if c.WroteHeader() {
		return
	}
	status := http.StatusInternalServerError
	msg := err.Error()
	if he, ok := err.(*httperr.Error); ok && he.Status != 0 {
		status = he.Status
		msg = he.Message
	}
	_ = c.Status(status).JSON(map[string]string{"error": msg})
}

// handleError is the dispatcher's single error-handling boundary (spec.md
// §4.6's final paragraph, §7's propagation rules): onError hooks run in
// order and may finalize the response themselves; if none do, the default
// error handler writes the 500 payload. A hook's own panic is logged but
// never replaces the original error.
func (a *App) handleError(c *ctx.Context, err error) {
	for _, hook := range a.onError {
		if c.Ended() {
			return
		}
		a.runErrorHook(c, hook, err)
	}
	if c.Ended() {
		return
	}
	a.errorHandler(c, err)
	c.End()
}

func (a *App) runErrorHook(c *ctx.Context, hook ErrorHook, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("onError hook panicked", "panic", r)
		}
	}()
	hook(c, err)
}
