// Package respcache implements the route-level response cache from
// spec.md §4.8: a TTL- and size-bounded LRU keyed by (method, pattern,
// canonicalized query), with an atomic per-key get-or-compute so concurrent
// requests for a cold key collapse into a single computation instead of a
// thundering herd.
//
// The map+mutex+doubly-linked-list LRU shape and the TTL/cleanup discipline
// are grounded in the teacher's middleware/session.go MemoryStore
// (expiring, lockable, cleanup-capable storage); the singleflight-style
// get-or-compute is this package's own addition to satisfy spec.md's
// atomicity requirement, built on the same sync.Mutex + per-key wait
// channel idiom the teacher uses for session regeneration safety.
package respcache

import (
	"container/list"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Store is the get-or-compute surface Registry routes depend on; *Cache
// (single-process) and *RemoteCache (cluster worker, speaking to the
// primary's Coordinator) both satisfy it, so a route's cache field can be
// swapped between the two without the dispatcher knowing which one it has.
type Store interface {
	GetOrCompute(key string, compute func() ([]byte, error)) ([]byte, error)
}

// Key canonicalizes (method, pattern, query) into the cache key from
// spec.md §3: method + pattern + a deterministic, sorted, URL-encoded
// serialization of the query map.
func Key(method, pattern string, query map[string]string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(' ')
	b.WriteString(pattern)
	b.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(query[k]))
	}
	return b.String()
}

// Digest returns a short, fixed-width hash of a cache key, suitable for log
// lines or as a secondary index; not used for equality (the full key is).
func Digest(key string) uint64 {
	return xxhash.Sum64String(key)
}

type entry struct {
	key       string
	value     []byte
	insertedAt time.Time
	elem      *list.Element
}

// Cache is a TTL + size-bounded, least-recently-used response cache. The
// zero value is not usable; construct with New.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxItems int
	maxValue int
	items    map[string]*entry
	order    *list.List // front = most recently used

	inflight map[string]*call
}

type call struct {
	done  chan struct{}
	value []byte
	err   error
}

// Options configures a Cache.
type Options struct {
	TTL            time.Duration
	MaxEntries     int
	MaxValueBytes  int // 0 = unbounded
}

// New returns a Cache bounded by opts. MaxEntries <= 0 defaults to 1000.
func New(opts Options) *Cache {
	max := opts.MaxEntries
	if max <= 0 {
		max = 1000
	}
	return &Cache{
		ttl:      opts.TTL,
		maxItems: max,
		maxValue: opts.MaxValueBytes,
		items:    make(map[string]*entry),
		order:    list.New(),
		inflight: make(map[string]*call),
	}
}

// Get returns the cached value for key if present and unexpired, bumping
// its recency.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.insertedAt) > c.ttl {
		c.removeLocked(e)
		return nil, false
	}
	c.order.MoveToFront(e.elem)
	return e.value, true
}

// Has reports presence without mutating recency or checking TTL freshness
// beyond what Get would — callers wanting a liveness check should use Get.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Set installs value under key, evicting the least-recently-used entry if
// the cache is at capacity. A value exceeding MaxValueBytes is silently not
// cached (the caller still gets its bytes back from the call site).
func (c *Cache) Set(key string, value []byte) {
	if c.maxValue > 0 && len(value) > c.maxValue {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		e.value = value
		e.insertedAt = time.Now()
		c.order.MoveToFront(e.elem)
		return
	}
	e := &entry{key: key, value: value, insertedAt: time.Now()}
	e.elem = c.order.PushFront(e)
	c.items[key] = e
	for len(c.items) > c.maxItems {
		c.evictOldestLocked()
	}
}

// Delete removes key unconditionally.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		c.removeLocked(e)
	}
}

func (c *Cache) evictOldestLocked() {
	back := c.order.Back()
	if back == nil {
		return
	}
	c.removeLocked(back.Value.(*entry))
}

func (c *Cache) removeLocked(e *entry) {
	c.order.Remove(e.elem)
	delete(c.items, e.key)
}

// GetOrCompute returns the cached bytes for key, or — if absent/expired —
// runs compute exactly once across all concurrent callers sharing that key
// and caches its result, per spec.md §4.8's get-or-compute atomicity
// requirement.
func (c *Cache) GetOrCompute(key string, compute func() ([]byte, error)) ([]byte, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	if v, ok := c.items[key]; ok && (c.ttl <= 0 || time.Since(v.insertedAt) <= c.ttl) {
		c.order.MoveToFront(v.elem)
		c.mu.Unlock()
		return v.value, nil
	}
	if inflight, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-inflight.done
		return inflight.value, inflight.err
	}
	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	value, err := compute()
	if err == nil {
		c.Set(key, value)
	}
	cl.value, cl.err = value, err
	close(cl.done)

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()

	return value, err
}

// Len reports the current entry count, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
