package cluster

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ignite-go/ignite/app"
	"github.com/ignite-go/ignite/respcache"
)

// Runner implements app.ClusterRunner. The zero value is usable; Workers
// overrides the default worker count (logical CPU count, per spec.md
// §4.9).
type Runner struct {
	// Workers overrides runtime.NumCPU() when > 0.
	Workers int
	// CacheOptions configures the primary's authoritative coordinator
	// cache (MaxEntries/MaxValueBytes, and a TTL that then applies to every
	// entry). In cluster mode the response cache collapses to one
	// coordinator-owned cache shared by every route (see DESIGN.md):
	// per-route TTL is not used, and each worker's local fallback cache is
	// built with no TTL.
	CacheOptions respcache.Options
}

// Run implements app.ClusterRunner. Called from *app.App.Start when the
// caller requests cluster mode. In the primary process (IsWorker()
// false), it binds the shared listener, forks Workers children, and
// blocks managing them (respawn, cache coordination, shutdown broker)
// until the primary is asked to shut down. In a worker process, Run never
// actually executes — main() is expected to call RunWorker directly
// instead once it detects IsWorker(), since
// the worker needs its cache transport wired in before routes are even
// registered. Run's worker branch exists anyway as a safety net for a
// caller that reaches Start(Cluster: true) inside an already-forked
// worker process.
func (r Runner) Run(a *app.App, port int) error {
	if IsWorker() {
		return RunWorker(a)
	}
	return r.runPrimary(a, port)
}

func (r Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.NumCPU()
}

// child tracks one live worker process and its private cache-IPC pipes.
type child struct {
	index int
	cmd   *exec.Cmd
	reqR  *os.File // primary reads cache requests here
	repW  *os.File // primary writes cache replies here
}

func (r Runner) runPrimary(a *app.App, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("cluster: primary listen: %w", err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		return fmt.Errorf("cluster: listener is not TCP, cannot share across workers")
	}
	lnFile, err := tcpLn.File()
	if err != nil {
		return fmt.Errorf("cluster: obtaining listener fd: %w", err)
	}
	bound := ln.Addr().(*net.TCPAddr).Port

	coordinator := respcache.NewCoordinator(respcache.New(r.CacheOptions))

	n := r.workers()
	a.Logger().Info("cluster: primary starting", "workers", n, "port", bound)

	var (
		mu       sync.Mutex
		children = make(map[int]*child, n)
		shutDown bool
	)

	g, gctx := errgroup.WithContext(context.Background())

	spawn := func(idx int) error {
		c, err := r.spawnChild(idx, bound, lnFile)
		if err != nil {
			return fmt.Errorf("cluster: spawning worker %d: %w", idx, err)
		}
		mu.Lock()
		children[idx] = c
		mu.Unlock()
		go readLoop(c.reqR, func(msg respcache.Message) {
			reply := coordinator.Handle(msg)
			b, err := reply.Marshal()
			if err != nil {
				return
			}
			_, _ = c.repW.Write(append(b, '\n'))
		})
		return nil
	}

	for i := 0; i < n; i++ {
		if err := spawn(i); err != nil {
			return err
		}
	}

	for i := 0; i < n; i++ {
		idx := i
		g.Go(func() error {
			for {
				mu.Lock()
				c := children[idx]
				mu.Unlock()
				err := c.cmd.Wait()
				_ = c.reqR.Close()
				_ = c.repW.Close()

				mu.Lock()
				quitting := shutDown
				mu.Unlock()
				if quitting {
					return nil
				}
				if BenchmarkMode() {
					a.Logger().Info("cluster: worker exited, benchmark mode: not respawning", "worker", idx, "error", err)
					return nil
				}
				a.Logger().Error("cluster: worker exited, respawning", "worker", idx, "error", err)
				select {
				case <-gctx.Done():
					return nil
				default:
				}
				if err := spawn(idx); err != nil {
					return err
				}
			}
		})
	}

	drainer := &processGroupDrainer{
		children: func() []*child {
			mu.Lock()
			defer mu.Unlock()
			out := make([]*child, 0, len(children))
			for _, c := range children {
				out = append(out, c)
			}
			return out
		},
		onShutdown: func() { mu.Lock(); shutDown = true; mu.Unlock() },
	}
	a.ShutdownManager().Listen(drainer)

	werr := g.Wait()
	<-a.ShutdownManager().Done()
	return werr
}

func (r Runner) spawnChild(idx, port int, lnFile *os.File) (*child, error) {
	reqR, reqW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	repR, repW, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		EnvWorker+"=1",
		fmt.Sprintf("%s=%d", EnvPort, port),
		fmt.Sprintf("%s=%d", EnvWorkerIndex, idx),
	)
	cmd.ExtraFiles = []*os.File{lnFile, reqW, repR}

	if err := cmd.Start(); err != nil {
		_ = reqR.Close()
		_ = reqW.Close()
		_ = repR.Close()
		_ = repW.Close()
		return nil, err
	}
	// The child has its own dup of reqW/repR now; close the primary's
	// copies so reqR observes EOF when the child exits.
	_ = reqW.Close()
	_ = repR.Close()

	return &child{index: idx, cmd: cmd, reqR: reqR, repW: repW}, nil
}

// processGroupDrainer adapts the child pool to shutdown.Drainer: Shutdown
// signals every live child and waits (bounded by ctx) for them to exit;
// Close force-kills whatever is left.
type processGroupDrainer struct {
	children   func() []*child
	onShutdown func()
}

func (d *processGroupDrainer) Shutdown(ctx context.Context) error {
	d.onShutdown()
	kids := d.children()
	for _, c := range kids {
		_ = c.cmd.Process.Signal(os.Interrupt)
	}
	done := make(chan struct{})
	go func() {
		for _, c := range kids {
			_, _ = c.cmd.Process.Wait()
		}
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *processGroupDrainer) Close() error {
	for _, c := range d.children() {
		_ = c.cmd.Process.Kill()
	}
	return nil
}

// RunWorker serves a on the listener this worker process inherited from
// its primary (fd 3). main() calls this directly once IsWorker() is true,
// after constructing a with WithCacheFactory(NewWorkerCacheFactory(...))
// so every cache-enabled route talks to the primary's coordinator from
// its first request.
func RunWorker(a *app.App) error {
	lnFile := os.NewFile(listenerFD, "ignite-cluster-listener")
	ln, err := net.FileListener(lnFile)
	if err != nil {
		return fmt.Errorf("cluster: worker could not adopt inherited listener: %w", err)
	}
	a.Logger().Info("cluster: worker listening", "port", WorkerPort(), "worker", WorkerIndex())
	return a.RunServerOn(ln)
}

// NewWorkerTransport opens this worker's inherited cache-IPC pipes (fds 4
// and 5) and starts the background loop that delivers primary replies
// back to rc. Call before constructing the App so WithCacheFactory can
// reference the returned RemoteCache.
func NewWorkerTransport() *respcache.RemoteCache {
	reqW := os.NewFile(cacheReqFD, "ignite-cluster-cache-req")
	repR := os.NewFile(cacheReplyFD, "ignite-cluster-cache-reply")

	transport := newPipeTransport(reqW)
	rc := respcache.NewRemoteCache(transport, respcache.New(respcache.Options{}))
	go readLoop(repR, rc.Deliver)
	return rc
}

// NewWorkerCacheFactory returns an app.CacheFactory that hands every
// cache-enabled route the same shared RemoteCache, matching the
// coordinator's single shared authoritative cache; per-route TTL is not
// honored in cluster mode (see CacheOptions doc on Runner).
func NewWorkerCacheFactory(rc *respcache.RemoteCache) app.CacheFactory {
	return func(respcache.Options) respcache.Store { return rc }
}
