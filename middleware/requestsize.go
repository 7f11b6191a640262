package middleware

import (
	"net/http"

	"github.com/ignite-go/ignite/ctx"
)

// RequestSizeConfig configures RequestSize.
type RequestSizeConfig struct {
	// MaxSize is the maximum allowed request body size in bytes. If 0 or
	// negative, no limit is enforced.
	MaxSize int64
	// ErrorResponse customizes the response when size limit is exceeded. If
	// nil, a default JSON error is sent.
	ErrorResponse func(c *ctx.Context, size, limit int64)
}

// RequestSize returns middleware rejecting requests whose Content-Length
// exceeds MaxSize with 413, checked before the body is read. Requests
// without a Content-Length header (e.g. chunked encoding) pass through.
func RequestSize(cfg RequestSizeConfig) func(*ctx.Context) ctx.Result {
	if cfg.MaxSize <= 0 {
		return func(c *ctx.Context) ctx.Result { return ctx.None }
	}
	return func(c *ctx.Context) ctx.Result {
		contentLength := c.Request().ContentLength
		if contentLength <= 0 || contentLength <= cfg.MaxSize {
			return ctx.None
		}
		if cfg.ErrorResponse != nil {
			cfg.ErrorResponse(c, contentLength, cfg.MaxSize)
		} else {
			c.Header("X-Content-Type-Options", "nosniff")
			_ = c.Status(http.StatusRequestEntityTooLarge).JSON(map[string]any{
				"error": "Request entity too large",
				"code":  "REQUEST_TOO_LARGE",
				"limit": cfg.MaxSize,
			})
		}
		c.End()
		return ctx.None
	}
}
