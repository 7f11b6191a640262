// Access logging: a start-time mw paired with a duration-computing
// ResponseHook, for the same reason Sessions is split in two (this
// framework's middleware chain only runs ahead of the handler).
package middleware

import (
	"context"
	"time"

	"github.com/ignite-go/ignite/app"
	"github.com/ignite-go/ignite/ctx"
	"github.com/ignite-go/ignite/obslog"
)

// LoggerAttributeKey is the context key for custom per-request log attributes.
type LoggerAttributeKey struct{}

// LoggerAttributes holds custom key-value pairs appended to a request's log line.
type LoggerAttributes struct {
	attrs []any
}

// NewLoggerAttributes builds a LoggerAttributes from key-value pairs.
func NewLoggerAttributes(pairs ...any) *LoggerAttributes {
	return &LoggerAttributes{attrs: pairs}
}

// Add appends more key-value pairs.
func (la *LoggerAttributes) Add(pairs ...any) {
	la.attrs = append(la.attrs, pairs...)
}

// WithLoggerAttributes attaches attrs to ctx for the Logger middleware to pick up.
func WithLoggerAttributes(c context.Context, attrs *LoggerAttributes) context.Context {
	return context.WithValue(c, LoggerAttributeKey{}, attrs)
}

// LoggerAttributesFromContext retrieves attributes attached by WithLoggerAttributes.
func LoggerAttributesFromContext(c context.Context) *LoggerAttributes {
	if v := c.Value(LoggerAttributeKey{}); v != nil {
		if attrs, ok := v.(*LoggerAttributes); ok {
			return attrs
		}
	}
	return nil
}

// LoggerConfig configures Logger.
type LoggerConfig struct {
	// ExcludeFields drops standard fields from the log line. Valid values:
	// "method", "path", "route", "status", "duration_ms", "remote", "user_agent".
	ExcludeFields []string
	// CustomAttributesFunc returns extra key-value pairs per request.
	CustomAttributesFunc func(c *ctx.Context) []any
	// Message is the log message. Defaults to "request".
	Message string
}

// LoggerOption configures a LoggerConfig.
type LoggerOption func(*LoggerConfig)

func WithExcludeFields(fields ...string) LoggerOption {
	return func(cfg *LoggerConfig) { cfg.ExcludeFields = append(cfg.ExcludeFields, fields...) }
}

func WithCustomAttributes(fn func(c *ctx.Context) []any) LoggerOption {
	return func(cfg *LoggerConfig) { cfg.CustomAttributesFunc = fn }
}

func WithMessage(message string) LoggerOption {
	return func(cfg *LoggerConfig) { cfg.Message = message }
}

const loggerStartKey = "__logger_start"

// Logger returns a middleware/hook pair logging one line per request via
// the request-scoped logger obslog.FromContext attaches (already carrying
// request_id, method, and path — see app/dispatch.go), with duration and
// status measured after the handler runs:
//
//	mw, hook := middleware.Logger()
//	a.Use(mw)
//	a.OnResponse(hook)
func Logger(options ...LoggerOption) (mw func(*ctx.Context) ctx.Result, hook app.ResponseHook) {
	cfg := &LoggerConfig{Message: "request"}
	for _, o := range options {
		o(cfg)
	}
	exclude := make(map[string]bool, len(cfg.ExcludeFields))
	for _, f := range cfg.ExcludeFields {
		exclude[f] = true
	}

	mw = func(c *ctx.Context) ctx.Result {
		c.Set(loggerStartKey, time.Now())
		return ctx.None
	}

	hook = func(c *ctx.Context, _ ctx.Result) bool {
		var start time.Time
		if v, ok := c.Get(loggerStartKey); ok {
			start, _ = v.(time.Time)
		}
		dur := time.Since(start)

		// onResponse hooks run before finalize stages the status for a
		// handler that never called c.Status itself, so an unset status
		// here means "200, pending finalize" rather than "unknown".
		status := c.StatusCode()
		if status == 0 {
			status = 200
		}

		ua, remote := "", ""
		if r := c.Request(); r != nil {
			ua = r.UserAgent()
			remote = r.RemoteAddr
		}

		attrs := make([]any, 0, 16)
		if !exclude["method"] {
			attrs = append(attrs, "method", c.Method())
		}
		if !exclude["path"] {
			attrs = append(attrs, "path", c.Pathname())
		}
		if !exclude["route"] {
			attrs = append(attrs, "route", c.Route())
		}
		if !exclude["status"] {
			attrs = append(attrs, "status", status)
		}
		if !exclude["duration_ms"] {
			attrs = append(attrs, "duration_ms", float64(dur.Microseconds())/1000.0)
		}
		if !exclude["remote"] {
			attrs = append(attrs, "remote", remote)
		}
		if !exclude["user_agent"] {
			attrs = append(attrs, "user_agent", ua)
		}
		if customAttrs := LoggerAttributesFromContext(c.Context()); customAttrs != nil {
			attrs = append(attrs, customAttrs.attrs...)
		}
		if cfg.CustomAttributesFunc != nil {
			if extra := cfg.CustomAttributesFunc(c); len(extra) > 0 {
				attrs = append(attrs, extra...)
			}
		}

		obslog.FromContext(c.Context()).Info(cfg.Message, attrs...)
		return false
	}
	return mw, hook
}
