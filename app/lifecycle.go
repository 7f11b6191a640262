package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ignite-go/ignite/gate"
)

// keepAliveTimeout and headerTimeout are the HTTP/1.1 wire defaults from
// spec.md §6 ("keepAliveTimeout ≈ 62s, headers timeout ≈ 65s").
const (
	keepAliveTimeout = 62 * time.Second
	headerTimeout    = 65 * time.Second
	maxPortAttempts  = 10
)

// ClusterRunner is the worker-pool envelope's hook into App.Start: when
// cluster mode is requested, Start delegates to a ClusterRunner instead of
// listening directly, so the app package never needs to import the cluster
// package (which itself needs to import app to drive a *App per worker).
type ClusterRunner interface {
	// Run takes over the process: the primary forks workers sharing port,
	// the workers call back into RunServer. Run blocks until shutdown.
	Run(a *App, port int) error
}

// WithClusterRunner installs the cluster-mode implementation.
func WithClusterRunner(r ClusterRunner) Option { return func(a *App) { a.clusterRunner = r } }

// StartOptions configures Start, mirroring spec.md §6's
// `start({ port?, maxConcurrency?, cluster? })`.
type StartOptions struct {
	Port           int
	MaxConcurrency int
	Cluster        bool
}

// Start runs every registered plugin's Register (spec.md §6: "must
// complete before the server starts handling requests"), then either
// listens directly or, if Cluster is requested, delegates to the
// configured ClusterRunner. Start blocks until the server stops.
func (a *App) Start(opts StartOptions) error {
	if err := a.drainPlugins(); err != nil {
		return err
	}
	if opts.MaxConcurrency > 0 && a.gate.Limit() != int64(opts.MaxConcurrency) {
		a.gate = gate.New(opts.MaxConcurrency)
	}

	if opts.Cluster {
		if a.clusterRunner == nil {
			return fmt.Errorf("app: cluster mode requested but no ClusterRunner configured")
		}
		port := opts.Port
		if port == 0 {
			port = 3000
		}
		return a.clusterRunner.Run(a, port)
	}

	return a.RunServer(opts.Port)
}

// RunServer binds a listener starting at port (auto-incrementing up to
// maxPortAttempts times on "address already in use", per spec.md §6) and
// serves until Shutdown is triggered.
func (a *App) RunServer(port int) error {
	if port == 0 {
		port = 3000
	}
	ln, bound, err := listenWithRetry(port)
	if err != nil {
		return err
	}
	a.logger.Info("listening", "port", bound)
	return a.RunServerOn(ln)
}

// RunServerOn serves on a caller-supplied listener instead of binding one
// of its own, for the worker-pool envelope: a cluster worker inherits its
// listening socket from the primary (an already-accepting fd, shared
// across workers by the OS) rather than opening a new port. Serves until
// Shutdown is triggered.
func (a *App) RunServerOn(ln net.Listener) error {
	a.server = &http.Server{
		Handler:           a,
		ReadHeaderTimeout: headerTimeout,
		IdleTimeout:       keepAliveTimeout,
	}
	a.shutdownMgr.Listen(a.server)

	err := a.server.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	<-a.shutdownMgr.Done()
	return nil
}

// Shutdown initiates a graceful shutdown (spec.md §5). Idempotent.
func (a *App) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	a.shutdownMgr.Trigger(a.server)
	<-a.shutdownMgr.Done()
	return nil
}

func listenWithRetry(port int) (net.Listener, int, error) {
	var lastErr error
	for i := 0; i < maxPortAttempts; i++ {
		candidate := port + i
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", candidate))
		if err == nil {
			return ln, candidate, nil
		}
		if !strings.Contains(err.Error(), "address already in use") {
			return nil, 0, err
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("app: no free port found after %d attempts: %w", maxPortAttempts, lastErr)
}

func (a *App) drainPlugins() error {
	for _, reg := range a.plugins {
		if err := reg.plugin.Register(a, reg.opts); err != nil {
			return fmt.Errorf("app: plugin registration failed: %w", err)
		}
	}
	return nil
}
