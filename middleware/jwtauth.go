package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ignite-go/ignite/ctx"
)

// jwtClaimsKey is the context key JWTAuth stores verified claims under.
type jwtClaimsKey struct{}

// WithJWTClaims stores claims into c, for JWTAuth's own use and for tests
// constructing a pre-authenticated context.
func WithJWTClaims(c context.Context, claims jwt.MapClaims) context.Context {
	return context.WithValue(c, jwtClaimsKey{}, claims)
}

// JWTClaimsFromContext retrieves the claims JWTAuth verified, if any.
func JWTClaimsFromContext(c context.Context) (jwt.MapClaims, bool) {
	v := c.Value(jwtClaimsKey{})
	if v == nil {
		return nil, false
	}
	claims, ok := v.(jwt.MapClaims)
	return claims, ok
}

// JWTConfig configures JWTAuth. Keyfunc is required; it resolves the
// verification key the same way github.com/golang-jwt/jwt/v5 always does
// (consulting the token's header to pick an HMAC secret or RSA/EC public
// key).
type JWTConfig struct {
	Keyfunc  jwt.Keyfunc
	Issuer   string
	Audience string
	// Skew is the clock-skew leeway applied to exp/nbf/iat checks.
	// Default 30s.
	Skew time.Duration
	// Optional lets a request with no Authorization header through
	// unauthenticated instead of rejecting it; a request that DOES carry
	// one is still fully validated.
	Optional bool
}

var jwtValidMethods = []string{"HS256", "HS384", "HS512", "RS256", "RS384", "RS512", "ES256", "EdDSA"}

// JWTAuth verifies a Bearer JWT on each request and, on success, stores its
// claims on the request context for downstream handlers/middleware to read
// via JWTClaimsFromContext. A missing, malformed, or invalid token ends
// the request with 401 and a WWW-Authenticate header (RFC 6750), unless
// cfg.Optional is set and no Authorization header was sent at all.
func JWTAuth(cfg JWTConfig) func(*ctx.Context) ctx.Result {
	if cfg.Skew == 0 {
		cfg.Skew = 30 * time.Second
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(jwtValidMethods),
		jwt.WithLeeway(cfg.Skew),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)

	return func(c *ctx.Context) ctx.Result {
		authz := c.Request().Header.Get("Authorization")
		if authz == "" {
			if cfg.Optional {
				return ctx.None
			}
			jwtUnauthorized(c, "missing Authorization header")
			return ctx.None
		}

		scheme, token, found := strings.Cut(authz, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			jwtUnauthorized(c, "invalid Authorization scheme")
			return ctx.None
		}

		tok, err := parser.ParseWithClaims(token, jwt.MapClaims{}, cfg.Keyfunc)
		if err != nil {
			jwtUnauthorized(c, fmt.Sprintf("token parse/verify failed: %v", err))
			return ctx.None
		}
		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok || !tok.Valid {
			jwtUnauthorized(c, "invalid token claims")
			return ctx.None
		}

		c.SetRequest(c.Request().WithContext(WithJWTClaims(c.Request().Context(), claims)))
		return ctx.None
	}
}

func jwtUnauthorized(c *ctx.Context, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+escapeAuthParam(desc)+`"`)
	_ = c.Status(http.StatusUnauthorized).JSON(map[string]string{"error": "unauthorized", "message": desc})
	c.End()
}

// escapeAuthParam makes desc safe to embed in a quoted WWW-Authenticate
// parameter per RFC 6750.
func escapeAuthParam(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
