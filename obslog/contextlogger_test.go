package obslog

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextLoggerRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := slog.Default()
	ctx = WithLogger(ctx, l)
	assert.Same(t, l, FromContext(ctx))
}

func TestFromContextDefaultsWhenAbsent(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}
