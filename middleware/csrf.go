// CSRF protection using the double-submit cookie pattern: a token is set in
// a cookie and must be echoed back in a header on unsafe methods.
package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/ignite-go/ignite/ctx"
)

// CSRFConfig configures the CSRF middleware.
//
// Security considerations:
//   - Use HTTPS in production (CookieSecure: true)
//   - Use HttpOnly cookies to prevent XSS token theft
//   - Ensure TokenLength is sufficient (32 bytes minimum recommended)
type CSRFConfig struct {
	CookieName     string
	HeaderName     string
	TokenLength    int
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite http.SameSite
	TTL            time.Duration
}

// DefaultCSRFConfig returns a safe default: 32-byte tokens, Secure+HttpOnly
// cookies, SameSite=Lax, 12-hour expiration.
func DefaultCSRFConfig() CSRFConfig {
	return CSRFConfig{
		CookieName:     "_csrf",
		HeaderName:     "X-CSRF-Token",
		TokenLength:    32,
		CookiePath:     "/",
		CookieSecure:   true,
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
		TTL:            12 * time.Hour,
	}
}

// CSRF returns middleware enforcing the double-submit cookie pattern: safe
// methods (GET/HEAD/OPTIONS) get a token cookie set if missing; unsafe
// methods must carry a matching token in both the cookie and HeaderName,
// or the request is rejected with 403.
func CSRF(cfgs ...CSRFConfig) func(*ctx.Context) ctx.Result {
	cfg := DefaultCSRFConfig()
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	return func(c *ctx.Context) ctx.Result {
		if c.Method() == http.MethodGet || c.Method() == http.MethodHead || c.Method() == http.MethodOptions {
			ensureCSRFCookie(c, cfg)
			return ctx.None
		}
		cookie, err := c.Request().Cookie(cfg.CookieName)
		if err != nil || cookie.Value == "" {
			_ = c.Status(http.StatusForbidden).String(http.StatusForbidden, "CSRF token missing")
			c.End()
			return ctx.None
		}
		headerTok := c.Request().Header.Get(cfg.HeaderName)
		if headerTok == "" || !compareTokens(cookie.Value, headerTok) {
			_ = c.Status(http.StatusForbidden).String(http.StatusForbidden, "CSRF token invalid")
			c.End()
			return ctx.None
		}
		return ctx.None
	}
}

func ensureCSRFCookie(c *ctx.Context, cfg CSRFConfig) {
	if cookie, err := c.Request().Cookie(cfg.CookieName); err == nil && cookie.Value != "" {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    generateCSRFToken(cfg.TokenLength),
		Path:     cfg.CookiePath,
		Domain:   cfg.CookieDomain,
		Secure:   cfg.CookieSecure,
		HttpOnly: cfg.CookieHTTPOnly,
		SameSite: cfg.CookieSameSite,
		Expires:  time.Now().Add(cfg.TTL),
	})
}

func generateCSRFToken(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func compareTokens(a, b string) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
