package obslog

import (
	"context"
	"log/slog"
)

type loggerContextKey struct{}

// WithLogger returns a context carrying l, for handlers/middleware that
// need a request-scoped logger (e.g. one with request-id/trace fields
// already attached) without threading it through every call explicitly.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// FromContext returns the logger attached by WithLogger, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if v := ctx.Value(loggerContextKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
