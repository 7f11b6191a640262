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

func TestCORSSetsAllowOriginForAllowedOrigin(t *testing.T) {
	a := app.New()
	a.Use(CORS(CORSConfig{Origins: []string{"https://app.example.com"}}))
	a.GET("/ping", func(c *ctx.Context) ctx.Result { return ctx.Text("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSOmitsAllowOriginForDisallowedOrigin(t *testing.T) {
	a := app.New()
	a.Use(CORS(CORSConfig{Origins: []string{"https://app.example.com"}}))
	a.GET("/ping", func(c *ctx.Context) ctx.Result { return ctx.Text("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightAllowsConfiguredMethod(t *testing.T) {
	a := app.New()
	a.Use(CORS(CORSConfig{
		Origins: []string{"https://app.example.com"},
		Methods: []string{"GET", "POST"},
		Headers: []string{"Content-Type"},
		MaxAge:  600,
	}))
	a.GET("/ping", func(c *ctx.Context) ctx.Result { return ctx.Text("pong") })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSPreflightRejectsDisallowedMethod(t *testing.T) {
	a := app.New()
	a.Use(CORS(CORSConfig{
		Origins: []string{"https://app.example.com"},
		Methods: []string{"GET"},
	}))
	a.GET("/ping", func(c *ctx.Context) ctx.Result { return ctx.Text("pong") })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "DELETE")
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCORSWildcardWithCredentialsPanics(t *testing.T) {
	assert.Panics(t, func() {
		CORS(CORSConfig{Origins: []string{"*"}, Credentials: true})
	})
}

func TestCORSPreflightRespondsOnUnmatchedRoute(t *testing.T) {
	a := app.New(app.WithCORSPreflightResponder(NewCORSPreflightResponder(CORSConfig{
		Origins: []string{"https://app.example.com"},
		Methods: []string{"GET", "POST"},
	})))

	req := httptest.NewRequest(http.MethodOptions, "/no-such-route", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
