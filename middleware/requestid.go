package middleware

import "github.com/ignite-go/ignite/ctx"

// RequestIDHeader is the header the dispatcher stamps on every response
// with a per-request ID, minted (or propagated from an inbound
// X-Request-ID) ambiently by app/dispatch.go before routing runs — no
// middleware is needed to get one.
const RequestIDHeader = "X-Request-ID"

// RequestIDFromContext returns the request ID the dispatcher stamped on
// c's response headers, for handlers/middleware that want to log or
// propagate it.
func RequestIDFromContext(c *ctx.Context) (string, bool) {
	id := c.ResponseWriter().Header().Get(RequestIDHeader)
	return id, id != ""
}
