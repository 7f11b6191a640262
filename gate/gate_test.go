package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	g := New(2)
	require.NoError(t, g.Acquire(context.Background()))
	require.NoError(t, g.Acquire(context.Background()))
	assert.Equal(t, int64(2), g.InFlight())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, g.Acquire(ctx), "third acquire should block until timeout")

	g.Release()
	assert.Equal(t, int64(1), g.InFlight())
}

func TestReleaseWithNothingHeldIsNoop(t *testing.T) {
	g := New(1)
	assert.NotPanics(t, func() { g.Release() })
	assert.Equal(t, int64(0), g.InFlight())

	require.NoError(t, g.Acquire(context.Background()))
	g.Release()
	g.Release() // spurious extra release
	assert.Equal(t, int64(0), g.InFlight())

	require.NoError(t, g.Acquire(context.Background()))
	assert.Equal(t, int64(1), g.InFlight())
}

func TestNonPositiveLimitClampsToOne(t *testing.T) {
	g := New(0)
	assert.Equal(t, int64(1), g.Limit())
}
