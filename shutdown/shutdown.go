// Package shutdown implements the graceful-shutdown manager from spec.md
// §5: stop accepting new connections on SIGTERM/SIGINT, wait up to a
// timeout for in-flight requests to drain, then force-close what remains.
// A second trigger while a shutdown is already underway collapses into the
// first (idempotent).
//
// Grounded on the teacher's Server.Start signal-handling goroutine
// (jrgalyan-quokka/server.go), generalized into a standalone manager the
// app package's lifecycle composes with its own listener/cluster concerns.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Manager drains one http.Server (or any Drainer) on SIGTERM/SIGINT.
type Manager struct {
	timeout time.Duration
	logger  *slog.Logger

	once    sync.Once
	done    chan struct{}
	trigger chan os.Signal
}

// Drainer is the subset of *http.Server's shutdown surface the manager
// needs; satisfied directly by *http.Server.
type Drainer interface {
	Shutdown(ctx context.Context) error
	Close() error
}

// New returns a Manager with the given drain timeout (spec.md default: 30s
// when timeout <= 0).
func New(timeout time.Duration, logger *slog.Logger) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
		trigger: make(chan os.Signal, 1),
	}
}

// Listen installs the SIGTERM/SIGINT handler and drains d when one arrives.
// Returns immediately; drain runs in a background goroutine. Done() closes
// once the drain (or a manual Trigger) has completed.
func (m *Manager) Listen(d Drainer) {
	signal.Notify(m.trigger, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig, ok := <-m.trigger
		if !ok {
			return
		}
		m.logger.Info("shutdown signal received", "signal", sig.String())
		m.drain(d)
	}()
}

// Trigger initiates a drain programmatically (e.g. from an admin endpoint),
// without waiting for an OS signal. Idempotent alongside Listen's signal
// handler: only the first caller, signal or programmatic, performs a drain.
func (m *Manager) Trigger(d Drainer) {
	m.drain(d)
}

func (m *Manager) drain(d Drainer) {
	m.once.Do(func() {
		defer close(m.done)
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		if err := d.Shutdown(ctx); err != nil {
			m.logger.Error("graceful shutdown timed out, forcing close", "error", err)
			_ = d.Close()
		}
	})
}

// Done reports completion of a drain triggered by Listen or Trigger.
func (m *Manager) Done() <-chan struct{} { return m.done }
