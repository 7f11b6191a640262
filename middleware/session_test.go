package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite-go/ignite/app"
	"github.com/ignite-go/ignite/ctx"
)

func TestMemoryStoreSaveGetDelete(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Save("id1", map[string]any{"k": "v"}, time.Minute))

	got, ok := s.Get("id1")
	require.True(t, ok)
	assert.Equal(t, "v", got["k"])

	require.NoError(t, s.Delete("id1"))
	_, ok = s.Get("id1")
	assert.False(t, ok)
}

func TestMemoryStoreExpiresEntries(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Save("id1", map[string]any{"k": "v"}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok := s.Get("id1")
	assert.False(t, ok)
}

func TestSessionsRoundTripsThroughCookie(t *testing.T) {
	a := app.New(app.WithRequestTimeout(5 * time.Second))
	mw, hook := Sessions(SessionConfig{Store: NewMemoryStore()})
	a.Use(mw)
	a.OnResponse(hook)

	a.GET("/set", func(c *ctx.Context) ctx.Result {
		SessionFromCtx(c).Set("user_id", "42")
		return ctx.Text("ok")
	})
	a.GET("/get", func(c *ctx.Context) ctx.Result {
		v, _ := SessionFromCtx(c).Get("user_id")
		return ctx.Text(v.(string))
	})

	req1 := httptest.NewRequest(http.MethodGet, "/set", nil)
	rec1 := httptest.NewRecorder()
	a.ServeHTTP(rec1, req1)
	require.Equal(t, http.StatusOK, rec1.Code)

	cookies := rec1.Result().Cookies()
	require.NotEmpty(t, cookies)

	req2 := httptest.NewRequest(http.MethodGet, "/get", nil)
	req2.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	a.ServeHTTP(rec2, req2)

	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, "42", rec2.Body.String())
}
