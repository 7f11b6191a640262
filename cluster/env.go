// Package cluster implements the worker-pool envelope from spec.md §4.9:
// when cluster mode is requested, a primary process picks a port, forks N
// child processes (N = logical CPU count) that share its listening
// socket, respawns a child that exits unless a benchmark/teardown flag is
// set, and owns the cross-process response-cache coordinator and the
// graceful-shutdown broker.
//
// The target language has no built-in multi-process primitive comparable
// to the cluster module spec.md's "primary forks workers and returns;
// workers listen" describes, so this package renders it the idiomatic Go
// way: os/exec re-executes the same binary as a child process, the
// listening socket crosses the fork as an inherited file descriptor
// (net.Listener.(*net.TCPListener).File(), then cmd.ExtraFiles), and a
// second pair of inherited pipes carries the respcache IPC protocol
// already defined in the respcache package (Message/Transport). No
// third-party library in the retrieval pack addresses OS process
// forking or fd inheritance — this is necessarily process-management
// code against the standard library (os/exec, os.Pipe, net.FileListener);
// golang.org/x/sync/errgroup (already a pack dependency) does the actual
// fan-in over the child processes.
package cluster

import (
	"os"
	"strconv"
)

// Environment variables the primary sets before re-executing itself as a
// child, and the child reads on startup (spec.md §6's "Environment
// variables" list: cluster flag, benchmark-mode flag, primary-assigned
// port).
const (
	// EnvWorker marks a re-exec'd process as a cluster worker rather than
	// the primary.
	EnvWorker = "IGNITE_CLUSTER_WORKER"
	// EnvPort carries the primary-assigned port the worker's inherited
	// listener is already bound to (informational: the worker never binds
	// its own port, but logs and health checks want it).
	EnvPort = "IGNITE_CLUSTER_PORT"
	// EnvBenchmark disables automatic respawn when set to "1", per
	// spec.md's "benchmark-mode flag: disables automatic worker respawn."
	EnvBenchmark = "IGNITE_CLUSTER_BENCHMARK"
	// EnvWorkerIndex carries the 0-based worker slot, for log attribution.
	EnvWorkerIndex = "IGNITE_CLUSTER_WORKER_INDEX"
)

// listenerFD, cacheReqFD, and cacheReplyFD are the fixed ExtraFiles slots
// every worker process inherits: fd 3 is the shared listener, fd 4 is the
// worker's write end of the cache-request pipe, fd 5 is the worker's read
// end of the cache-reply pipe. ExtraFiles[i] always lands at fd 3+i in
// the child (fds 0-2 are stdin/stdout/stderr).
const (
	listenerFD   = 3
	cacheReqFD   = 4
	cacheReplyFD = 5
)

// IsWorker reports whether the current process was re-exec'd by a cluster
// primary, for main() to branch its own App construction (a worker needs
// app.WithCacheFactory wired to this process's inherited cache transport
// before routes are registered).
func IsWorker() bool { return os.Getenv(EnvWorker) == "1" }

// BenchmarkMode reports whether automatic respawn is disabled.
func BenchmarkMode() bool { return os.Getenv(EnvBenchmark) == "1" }

// WorkerPort returns the port this worker's inherited listener is bound
// to, per EnvPort.
func WorkerPort() int {
	p, _ := strconv.Atoi(os.Getenv(EnvPort))
	return p
}

// WorkerIndex returns this worker's 0-based slot, or -1 if unset.
func WorkerIndex() int {
	v, ok := os.LookupEnv(EnvWorkerIndex)
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
