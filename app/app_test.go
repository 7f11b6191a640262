package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite-go/ignite/ctx"
)

func newTestApp() *App {
	return New(WithRequestTimeout(5 * time.Second))
}

func TestGETRegistersAndDispatches(t *testing.T) {
	a := newTestApp()
	a.GET("/ping", func(c *ctx.Context) ctx.Result {
		return ctx.JSON(map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestParamInjectionByStructFieldName(t *testing.T) {
	a := newTestApp()
	type greetParams struct {
		Name string
	}
	a.GET("/greet/:name", func(p greetParams) ctx.Result {
		return ctx.Text("hello " + p.Name)
	})

	req := httptest.NewRequest(http.MethodGet, "/greet/ada", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello ada", rec.Body.String())
}

func TestNoRouteReturnsNotFound(t *testing.T) {
	a := newTestApp()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOptionsWithoutRouteReturnsNoContent(t *testing.T) {
	a := newTestApp()
	a.GET("/widgets", func(c *ctx.Context) ctx.Result { return ctx.None })

	req := httptest.NewRequest(http.MethodOptions, "/widgets", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddlewareChainRunsBeforeHandler(t *testing.T) {
	a := newTestApp()
	var order []string
	a.Use(func(c *ctx.Context) ctx.Result {
		order = append(order, "global")
		return ctx.None
	})
	a.Route("/chain").Middleware(func(c *ctx.Context) ctx.Result {
		order = append(order, "route")
		return ctx.None
	}).GET(func(c *ctx.Context) ctx.Result {
		order = append(order, "handler")
		return ctx.Text("done")
	})

	req := httptest.NewRequest(http.MethodGet, "/chain", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"global", "route", "handler"}, order)
}

func TestDecorateRejectsDuplicateName(t *testing.T) {
	a := newTestApp()
	require.NoError(t, a.Decorate("db", "conn"))
	err := a.Decorate("db", "other")
	require.Error(t, err)
}

func TestGroupInheritsPrefixAndMiddleware(t *testing.T) {
	a := newTestApp()
	var hit bool
	g := a.Group("/api")
	g.Use(func(c *ctx.Context) ctx.Result {
		hit = true
		return ctx.None
	})
	g.GET("/users", func(c *ctx.Context) ctx.Result { return ctx.Text("users") })

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hit)
	assert.Equal(t, "users", rec.Body.String())
}
