package app_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ignite-go/ignite/app"
	"github.com/ignite-go/ignite/ctx"
)

// These specs walk spec.md §8's six literal end-to-end scenarios against a
// real *app.App and net/http/httptest round trip, rather than unit-testing
// dispatch.go's internal steps in isolation.
var _ = Describe("end-to-end dispatch", func() {
	It("answers a plain GET with no bound parameters", func() {
		a := app.New()
		a.GET("/ping", func(c *ctx.Context) ctx.Result {
			return ctx.JSON(map[string]string{"pong": "ok"})
		})

		rec := httptest.NewRecorder()
		a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"pong":"ok"}`))
	})

	It("injects a single path parameter by bare field name", func() {
		a := app.New()
		a.GET("/users/:id", func(p struct{ Id string }) ctx.Result {
			return ctx.JSON(map[string]string{"userId": p.Id})
		})

		rec := httptest.NewRecorder()
		a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"userId":"42"}`))
	})

	It("groups path parameters and body behind the fixed params/body fields", func() {
		a := app.New()
		a.Use(func(c *ctx.Context) ctx.Result {
			var body map[string]any
			if err := json.NewDecoder(c.Request().Body).Decode(&body); err == nil {
				c.SetBody(body)
			}
			return ctx.None
		})
		a.POST("/users/:id", func(p struct {
			Params map[string]string
			Body   any
		}) ctx.Result {
			return ctx.JSON(map[string]any{
				"userId":   p.Params["id"],
				"userData": p.Body,
			})
		})

		req := httptest.NewRequest(http.MethodPost, "/users/7", strings.NewReader(`{"name":"X"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		a.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"userId":"7","userData":{"name":"X"}}`))
	})

	It("accumulates one context-patch key per middleware in the chain", func() {
		a := app.New()
		a.Use(
			func(c *ctx.Context) ctx.Result { return ctx.Patch(map[string]any{"step1": true}) },
			func(c *ctx.Context) ctx.Result { return ctx.Patch(map[string]any{"step2": true}) },
			func(c *ctx.Context) ctx.Result { return ctx.Patch(map[string]any{"step3": true}) },
		)
		a.GET("/chain", func(p struct{ Step1, Step2, Step3 bool }) ctx.Result {
			return ctx.JSON(map[string]any{"chain": []bool{p.Step1, p.Step2, p.Step3}})
		})

		rec := httptest.NewRecorder()
		a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chain", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"chain":[true,true,true]}`))
	})

	It("serves a cached route from the same response until its TTL elapses", func() {
		a := app.New()
		calls := 0
		a.GET("/cached", func(c *ctx.Context) ctx.Result {
			calls++
			return ctx.JSON(map[string]int{"calls": calls})
		}, app.WithCacheTTL(100*time.Millisecond))

		first := httptest.NewRecorder()
		a.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/cached", nil))
		Expect(first.Body.String()).To(MatchJSON(`{"calls":1}`))

		time.Sleep(20 * time.Millisecond)
		second := httptest.NewRecorder()
		a.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/cached", nil))
		Expect(second.Body.String()).To(MatchJSON(`{"calls":1}`))

		time.Sleep(150 * time.Millisecond)
		third := httptest.NewRecorder()
		a.ServeHTTP(third, httptest.NewRequest(http.MethodGet, "/cached", nil))
		Expect(third.Body.String()).To(MatchJSON(`{"calls":2}`))
	})

	It("yields a 408 when a handler outlives the request timeout, then releases its gate slot", func() {
		a := app.New(app.WithRequestTimeout(50*time.Millisecond), app.WithMaxConcurrency(1))
		release := make(chan struct{})
		a.GET("/slow", func(c *ctx.Context) ctx.Result {
			select {
			case <-release:
			case <-time.After(200 * time.Millisecond):
			}
			return ctx.Text("too late")
		})
		a.GET("/fast", func(c *ctx.Context) ctx.Result { return ctx.Text("ok") })
		defer close(release)

		rec := httptest.NewRecorder()
		a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))

		Expect(rec.Code).To(Equal(http.StatusRequestTimeout))
		Expect(rec.Body.String()).To(MatchJSON(`{"error":"Request timeout"}`))

		// The slow handler is still running in the background (spec.md §5:
		// the in-flight task is allowed to complete). Its gate slot was
		// released when the 408 was written, so the gate (capacity 1)
		// accepts a new request while the handler is still running.
		Eventually(func() int { return confirmFastOK(a) }, time.Second, 10*time.Millisecond).Should(Equal(http.StatusOK))
	})
})

// confirmFastOK issues a single request to /fast, returning its status code.
// Used to poll for the concurrency gate's single slot being free again
// after the timeout scenario's 408 has been written.
func confirmFastOK(a *app.App) int {
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fast", nil))
	return rec.Code
}
