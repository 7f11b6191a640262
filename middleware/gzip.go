package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/ignite-go/ignite/ctx"
)

// GzipConfig configures the gzip middleware. Level sets the gzip
// compression level (see compress/gzip). Defaults to gzip.DefaultCompression.
type GzipConfig struct {
	Level int
}

// gzipPools is a global map of sync.Pool keyed by compression level, to
// avoid repeated allocation of gzip.Writer. Grounded on the teacher's
// gzip.go pooling.
var gzipPools sync.Map // map[int]*sync.Pool

func getGzipWriter(level int, w io.Writer) (*gzip.Writer, func()) {
	poolAny, _ := gzipPools.LoadOrStore(level, &sync.Pool{New: func() any {
		gw, _ := gzip.NewWriterLevel(io.Discard, level)
		return gw
	}})
	pool := poolAny.(*sync.Pool)
	gw := pool.Get().(*gzip.Writer)
	gw.Reset(w)
	put := func() {
		_ = gw.Close()
		gw.Reset(io.Discard)
		pool.Put(gw)
	}
	return gw, put
}

// Gzip returns middleware compressing the response body when the client
// sends Accept-Encoding: gzip. HEAD requests are never compressed.
//
// Unlike the teacher's streaming gzipResponseWriter — built for a
// next(c)-wrapping chain where a deferred Close runs once the handler
// returns up the call stack — this framework's finalize step writes the
// whole response body in one Send/JSON/String/HTML call, so
// gzipResponseWriter.Write compresses and closes the stream within that
// single call instead of relying on an outer defer.
func Gzip(cfgs ...GzipConfig) func(*ctx.Context) ctx.Result {
	cfg := GzipConfig{Level: gzip.DefaultCompression}
	if len(cfgs) > 0 && cfgs[0].Level != 0 {
		cfg.Level = cfgs[0].Level
	}
	return func(c *ctx.Context) ctx.Result {
		r := c.Request()
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") || c.Method() == http.MethodHead {
			return ctx.None
		}
		c.SetResponseWriter(&gzipResponseWriter{rw: c.ResponseWriter(), level: cfg.Level})
		return ctx.None
	}
}

type gzipResponseWriter struct {
	rw          http.ResponseWriter
	level       int
	wroteHeader bool
	useGzip     bool
}

func (g *gzipResponseWriter) Header() http.Header { return g.rw.Header() }

func (g *gzipResponseWriter) WriteHeader(status int) {
	if g.wroteHeader {
		return
	}
	g.wroteHeader = true

	enc := g.Header().Get("Content-Encoding")
	if enc != "" && enc != "identity" {
		g.useGzip = false
		g.rw.WriteHeader(status)
		return
	}
	if status == http.StatusNoContent || status == http.StatusNotModified {
		g.useGzip = false
		g.rw.WriteHeader(status)
		return
	}

	g.useGzip = true
	g.Header().Del("Content-Length")
	g.Header().Set("Content-Encoding", "gzip")
	g.Header().Add("Vary", "Accept-Encoding")
	g.rw.WriteHeader(status)
}

// Write compresses p and flushes the gzip trailer before returning, since
// this framework calls Write exactly once per response.
func (g *gzipResponseWriter) Write(p []byte) (int, error) {
	if !g.wroteHeader {
		g.WriteHeader(http.StatusOK)
	}
	if !g.useGzip {
		return g.rw.Write(p)
	}
	gw, put := getGzipWriter(g.level, g.rw)
	n, err := gw.Write(p)
	put()
	return n, err
}

func (g *gzipResponseWriter) Flush() {
	if f, ok := g.rw.(http.Flusher); ok {
		f.Flush()
	}
}

var _ http.ResponseWriter = (*gzipResponseWriter)(nil)
var _ http.Flusher = (*gzipResponseWriter)(nil)
