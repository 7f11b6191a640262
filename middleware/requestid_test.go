package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite-go/ignite/app"
	"github.com/ignite-go/ignite/ctx"
)

func TestRequestIDFromContextReadsDispatcherStampedHeader(t *testing.T) {
	var seen string
	a := app.New()
	a.GET("/ping", func(c *ctx.Context) ctx.Result {
		seen, _ = RequestIDFromContext(c)
		return ctx.Text("pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.NotEmpty(t, seen)
	assert.Equal(t, rec.Header().Get(RequestIDHeader), seen)
}

func TestRequestIDFromContextPropagatesInboundHeader(t *testing.T) {
	a := app.New()
	a.GET("/ping", func(c *ctx.Context) ctx.Result { return ctx.Text("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "fixed-id-123")
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id-123", rec.Header().Get(RequestIDHeader))
}
