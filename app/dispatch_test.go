package app

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite-go/ignite/ctx"
)

func TestRouteCacheServesSecondRequestFromCache(t *testing.T) {
	a := newTestApp()
	var calls int32
	a.GET("/cached", func(c *ctx.Context) ctx.Result {
		atomic.AddInt32(&calls, 1)
		return ctx.JSON(map[string]any{"calls": atomic.LoadInt32(&calls)})
	}, WithCacheTTL(time.Minute))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/cached", nil)
		rec := httptest.NewRecorder()
		a.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"calls":1}`, rec.Body.String())
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRequestTimeoutYields408(t *testing.T) {
	a := New(WithRequestTimeout(10 * time.Millisecond))
	release := make(chan struct{})
	a.GET("/slow", func(c *ctx.Context) ctx.Result {
		<-release
		return ctx.Text("too late")
	})
	defer close(release)

	req := httptest.NewRequest(http.MethodGet, "/slow", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestTimeout, rec.Code)
}

func TestErrorHookObservesDispatchError(t *testing.T) {
	a := newTestApp()
	var seen error
	a.OnError(func(c *ctx.Context, err error) { seen = err })
	a.GET("/boom", func(c *ctx.Context) (ctx.Result, error) {
		return ctx.None, assert.AnError
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Error(t, seen)
}

func TestResponseHookCanSuppressDefaultFinalize(t *testing.T) {
	a := newTestApp()
	a.OnResponse(func(c *ctx.Context, r ctx.Result) bool {
		c.Status(http.StatusAccepted)
		_, _ = c.Send(http.StatusAccepted, "text/plain; charset=utf-8", []byte("handled"))
		c.End()
		return true
	})
	a.GET("/hook", func(c *ctx.Context) ctx.Result { return ctx.Text("default") })

	req := httptest.NewRequest(http.MethodGet, "/hook", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "handled", rec.Body.String())
}
