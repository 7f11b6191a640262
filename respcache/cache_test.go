package respcache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyCanonicalization(t *testing.T) {
	k1 := Key("get", "/users/:id", map[string]string{"b": "2", "a": "1"})
	k2 := Key("GET", "/users/:id", map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, k1, k2, "method case and key order must not affect the canonical key")
}

func TestSetGetAndTTLExpiry(t *testing.T) {
	c := New(Options{TTL: 10 * time.Millisecond, MaxEntries: 10})
	c.Set("a", []byte("hello"))

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), v)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestLRUEviction(t *testing.T) {
	c := New(Options{MaxEntries: 2})
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Get("a") // bump a to most-recently-used
	c.Set("c", []byte("3"))

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted as least-recently-used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestGetOrComputeCollapsesConcurrentCallers(t *testing.T) {
	c := New(Options{MaxEntries: 10})
	var calls atomic.Int32

	compute := func() ([]byte, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return []byte("computed"), nil
	}

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute("shared", compute)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, []byte("computed"), v)
	}
}

func TestGetOrComputePropagatesError(t *testing.T) {
	c := New(Options{MaxEntries: 10})
	wantErr := errors.New("boom")
	_, err := c.GetOrCompute("k", func() ([]byte, error) { return nil, wantErr })
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, c.Len())
}

func TestMaxValueBytesRejectsOversizedEntries(t *testing.T) {
	c := New(Options{MaxEntries: 10, MaxValueBytes: 4})
	c.Set("big", []byte("way too large"))
	_, ok := c.Get("big")
	assert.False(t, ok)
}
