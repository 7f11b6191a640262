package middleware_test

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ignite-go/ignite/app"
	"github.com/ignite-go/ignite/ctx"
	"github.com/ignite-go/ignite/middleware"
)

var _ = Describe("JWTAuth", func() {
	secret := []byte("testsecret")
	keyfunc := func(token *jwt.Token) (any, error) { return secret, nil }

	newApp := func(cfg middleware.JWTConfig) (*app.App, *string) {
		a := app.New()
		a.Use(middleware.JWTAuth(cfg))
		var sub string
		a.GET("/me", func(c *ctx.Context) ctx.Result {
			if claims, ok := middleware.JWTClaimsFromContext(c.Context()); ok {
				if v, ok2 := claims["sub"].(string); ok2 {
					sub = v
				}
			}
			return ctx.Text("ok")
		})
		return a, &sub
	}

	It("accepts a valid HS256 token and exposes its claims", func() {
		a, sub := newApp(middleware.JWTConfig{Keyfunc: keyfunc, Issuer: "ignite"})

		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"iss": "ignite",
			"sub": "user1",
			"iat": time.Now().Unix(),
			"exp": time.Now().Add(5 * time.Minute).Unix(),
		})
		signed, err := tok.SignedString(secret)
		Expect(err).NotTo(HaveOccurred())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		a.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(*sub).To(Equal("user1"))
	})

	It("rejects a missing token with 401 and WWW-Authenticate", func() {
		a, _ := newApp(middleware.JWTConfig{Keyfunc: keyfunc})

		rec := httptest.NewRecorder()
		a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(rec.Header().Get("WWW-Authenticate")).To(ContainSubstring("Bearer"))
		Expect(rec.Body.String()).To(ContainSubstring("unauthorized"))
	})

	It("lets Optional mode through without a token", func() {
		a, _ := newApp(middleware.JWTConfig{Keyfunc: keyfunc, Optional: true})

		rec := httptest.NewRecorder()
		a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("rejects an expired token", func() {
		a, _ := newApp(middleware.JWTConfig{Keyfunc: keyfunc})

		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "user1",
			"exp": time.Now().Add(-time.Minute).Unix(),
		})
		signed, err := tok.SignedString(secret)
		Expect(err).NotTo(HaveOccurred())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		a.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("accepts a valid RSA-signed token", func() {
		rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
		Expect(err).NotTo(HaveOccurred())
		rsaKeyfunc := func(token *jwt.Token) (any, error) { return &rsaKey.PublicKey, nil }

		a, sub := newApp(middleware.JWTConfig{Keyfunc: rsaKeyfunc})

		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"sub": "rsa-user",
			"iat": time.Now().Unix(),
			"exp": time.Now().Add(5 * time.Minute).Unix(),
		})
		signed, err := tok.SignedString(rsaKey)
		Expect(err).NotTo(HaveOccurred())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		a.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(*sub).To(Equal("rsa-user"))
	})

	It("rejects a malformed Authorization scheme", func() {
		a, _ := newApp(middleware.JWTConfig{Keyfunc: keyfunc})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		a.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})
})
