package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite-go/ignite/app"
	"github.com/ignite-go/ignite/ctx"
)

func TestRequestSizeRejectsOversizedBody(t *testing.T) {
	a := app.New()
	a.Use(RequestSize(RequestSizeConfig{MaxSize: 4}))
	a.POST("/echo", func(c *ctx.Context) ctx.Result { return ctx.Text("ok") })

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("this is too long"))
	req.ContentLength = int64(len("this is too long"))
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRequestSizeAllowsWithinLimit(t *testing.T) {
	a := app.New()
	a.Use(RequestSize(RequestSizeConfig{MaxSize: 1024}))
	a.POST("/echo", func(c *ctx.Context) ctx.Result { return ctx.Text("ok") })

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("short"))
	req.ContentLength = int64(len("short"))
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
