package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite-go/ignite/app"
	"github.com/ignite-go/ignite/ctx"
)

func TestGzipCompressesWhenAcceptEncodingPresent(t *testing.T) {
	a := app.New()
	a.Use(Gzip())
	a.GET("/ping", func(c *ctx.Context) ctx.Result { return ctx.Text("pong pong pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	gr, err := gzip.NewReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	out, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, "pong pong pong", string(out))
}

func TestGzipSkipsWithoutAcceptEncoding(t *testing.T) {
	a := app.New()
	a.Use(Gzip())
	a.GET("/ping", func(c *ctx.Context) ctx.Result { return ctx.Text("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "pong", rec.Body.String())
}
