package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite-go/ignite/app"
	"github.com/ignite-go/ignite/ctx"
)

func TestLoggerEmitsOneLineWithStandardFields(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	a := app.New(app.WithLogger(l))
	mw, hook := Logger()
	a.Use(mw)
	a.OnResponse(hook)
	a.GET("/ping", func(c *ctx.Context) ctx.Result { return ctx.Text("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), `"msg":"request"`)
	assert.Contains(t, buf.String(), `"path":"/ping"`)
}

func TestLoggerExcludesConfiguredFields(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	a := app.New(app.WithLogger(l))
	mw, hook := Logger(WithExcludeFields("user_agent", "remote"))
	a.Use(mw)
	a.OnResponse(hook)
	a.GET("/ping", func(c *ctx.Context) ctx.Result { return ctx.Text("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.NotContains(t, buf.String(), "user_agent")
	assert.NotContains(t, buf.String(), `"remote"`)
}

func TestLoggerIncludesCustomAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	a := app.New(app.WithLogger(l))
	mw, hook := Logger(WithCustomAttributes(func(c *ctx.Context) []any {
		return []any{"tenant_id", "acme"}
	}))
	a.Use(mw)
	a.OnResponse(hook)
	a.GET("/ping", func(c *ctx.Context) ctx.Result { return ctx.Text("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Contains(t, buf.String(), `"tenant_id":"acme"`)
}
