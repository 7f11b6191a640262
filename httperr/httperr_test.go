package httperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundMessage(t *testing.T) {
	err := NotFound("GET", "/missing")
	assert.Equal(t, 404, err.Status)
	assert.Equal(t, "Route GET /missing not found", err.Message)
}

func TestPayloadTooLargeMessage(t *testing.T) {
	err := PayloadTooLarge(1024, 2048)
	assert.Equal(t, "Payload too large (limit: 1024 bytes, received: 2048 bytes)", err.Message)
}

func TestApplicationWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Application(cause)
	assert.Equal(t, 500, err.Status)
	assert.ErrorIs(t, err, cause)
}

func TestIsMatchesByKind(t *testing.T) {
	err := Timeout()
	assert.True(t, Is(err, KindTimeout))
	assert.False(t, Is(err, KindBadRequest))
	assert.False(t, Is(errors.New("plain"), KindTimeout))
}

func TestErrorIsAcrossInstances(t *testing.T) {
	var err error = NotFound("GET", "/a")
	assert.True(t, errors.Is(err, NotFound("POST", "/b")))
}
