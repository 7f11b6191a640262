package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite-go/ignite/app"
)

func TestRegisterHealthServesDefaultOnGetAndHead(t *testing.T) {
	a := app.New()
	RegisterHealth(a)

	getReq := httptest.NewRequest(http.MethodGet, "/health", nil)
	getRec := httptest.NewRecorder()
	a.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)
	assert.Contains(t, getRec.Body.String(), `"status":"ok"`)

	headReq := httptest.NewRequest(http.MethodHead, "/health", nil)
	headRec := httptest.NewRecorder()
	a.ServeHTTP(headRec, headReq)
	assert.Equal(t, http.StatusOK, headRec.Code)
}

func TestRegisterHealthSanitizesDoubleSlashPath(t *testing.T) {
	a := app.New()
	RegisterHealth(a, HealthConfig{Path: "//status//", SanitizePath: true})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
