// Redis-backed alternative to the in-process cross-process coordinator,
// for deployments where the primary process itself should not be the
// single point of failure for the cache (e.g. rolling deploys that replace
// the primary). Grounded on the functional-options Redis client shape in
// arkd0ng-go-utils/database/redis.
package respcache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisBackend.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

// RedisOption mutates a RedisConfig; mirrors the teacher's functional-option
// pattern for its Redis client constructor.
type RedisOption func(*RedisConfig)

func WithAddr(addr string) RedisOption         { return func(c *RedisConfig) { c.Addr = addr } }
func WithPassword(pw string) RedisOption       { return func(c *RedisConfig) { c.Password = pw } }
func WithDB(db int) RedisOption                { return func(c *RedisConfig) { c.DB = db } }
func WithPoolSize(n int) RedisOption           { return func(c *RedisConfig) { c.PoolSize = n } }
func WithKeyPrefix(prefix string) RedisOption  { return func(c *RedisConfig) { c.KeyPrefix = prefix } }

func defaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "ignite:respcache:",
	}
}

// RedisBackend is a Cache-shaped client over a shared Redis instance,
// suitable as the authoritative store in a multi-process or multi-host
// deployment where no single worker process can own the map in memory.
type RedisBackend struct {
	rdb    *redis.Client
	cfg    *RedisConfig
	ttl    time.Duration
	local  *Cache // best-effort fallback, mirrors RemoteCache's contract
}

// NewRedisBackend dials Redis and verifies connectivity with Ping.
func NewRedisBackend(ttl time.Duration, opts ...RedisOption) (*RedisBackend, error) {
	cfg := defaultRedisConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("respcache: redis connect: %w", err)
	}

	return &RedisBackend{rdb: rdb, cfg: cfg, ttl: ttl, local: New(Options{TTL: ttl})}, nil
}

func (b *RedisBackend) prefixed(key string) string { return b.cfg.KeyPrefix + key }

// Get returns the cached bytes for key, falling back to the local cache on
// a Redis error (network partition, instance restart).
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := b.rdb.Get(ctx, b.prefixed(key)).Bytes()
	if err != nil {
		return b.local.Get(key)
	}
	return val, true
}

// Set writes value under key with the configured TTL, also updating the
// local fallback.
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) {
	b.local.Set(key, value)
	_ = b.rdb.Set(ctx, b.prefixed(key), value, b.ttl).Err()
}

// Has reports existence without transferring the value.
func (b *RedisBackend) Has(ctx context.Context, key string) bool {
	n, err := b.rdb.Exists(ctx, b.prefixed(key)).Result()
	if err != nil {
		return b.local.Has(key)
	}
	return n > 0
}

// Delete removes key from both Redis and the local fallback.
func (b *RedisBackend) Delete(ctx context.Context, key string) {
	b.local.Delete(key)
	_ = b.rdb.Del(ctx, b.prefixed(key)).Err()
}

// Close releases the underlying Redis connection pool.
func (b *RedisBackend) Close() error { return b.rdb.Close() }
