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

func newCSRFTestApp() *app.App {
	a := app.New()
	a.Use(CSRF())
	a.GET("/form", func(c *ctx.Context) ctx.Result { return ctx.Text("ok") })
	a.POST("/submit", func(c *ctx.Context) ctx.Result { return ctx.Text("ok") })
	return a
}

func TestCSRFSetsCookieOnSafeMethod(t *testing.T) {
	a := newCSRFTestApp()
	req := httptest.NewRequest(http.MethodGet, "/form", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "_csrf", cookies[0].Name)
}

func TestCSRFRejectsMissingToken(t *testing.T) {
	a := newCSRFTestApp()
	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRFAcceptsMatchingCookieAndHeader(t *testing.T) {
	a := newCSRFTestApp()

	getReq := httptest.NewRequest(http.MethodGet, "/form", nil)
	getRec := httptest.NewRecorder()
	a.ServeHTTP(getRec, getReq)
	cookies := getRec.Result().Cookies()
	require.NotEmpty(t, cookies)

	postReq := httptest.NewRequest(http.MethodPost, "/submit", nil)
	postReq.AddCookie(cookies[0])
	postReq.Header.Set("X-CSRF-Token", cookies[0].Value)
	postRec := httptest.NewRecorder()
	a.ServeHTTP(postRec, postReq)

	assert.Equal(t, http.StatusOK, postRec.Code)
}

func TestCSRFRejectsMismatchedToken(t *testing.T) {
	a := newCSRFTestApp()

	getReq := httptest.NewRequest(http.MethodGet, "/form", nil)
	getRec := httptest.NewRecorder()
	a.ServeHTTP(getRec, getReq)
	cookies := getRec.Result().Cookies()
	require.NotEmpty(t, cookies)

	postReq := httptest.NewRequest(http.MethodPost, "/submit", nil)
	postReq.AddCookie(cookies[0])
	postReq.Header.Set("X-CSRF-Token", "wrong-token")
	postRec := httptest.NewRecorder()
	a.ServeHTTP(postRec, postReq)

	assert.Equal(t, http.StatusForbidden, postRec.Code)
}
