package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketAllowsUpToCapacity(t *testing.T) {
	tb := NewTokenBucketStrategy(2, time.Minute)
	defer tb.Close()

	allowed, _ := tb.Allow("k")
	assert.True(t, allowed)
	allowed, _ = tb.Allow("k")
	assert.True(t, allowed)
	allowed, retry := tb.Allow("k")
	assert.False(t, allowed)
	assert.Greater(t, retry, time.Duration(0))
}

func TestTokenBucketTracksKeysIndependently(t *testing.T) {
	tb := NewTokenBucketStrategy(1, time.Minute)
	defer tb.Close()

	allowed, _ := tb.Allow("a")
	assert.True(t, allowed)
	allowed, _ = tb.Allow("b")
	assert.True(t, allowed)
}

func TestSanitizeKeyReplacesControlCharacters(t *testing.T) {
	assert.Equal(t, "user_123", sanitizeKey("user\x00123"))
	assert.Equal(t, "key_with_tabs", sanitizeKey("key\twith\ntabs"))
}
