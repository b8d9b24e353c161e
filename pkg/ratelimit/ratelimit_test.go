package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "rate_limit:chat:10.0.0.1", Key("chat", "10.0.0.1"))
}

func TestNilClientAlwaysAllows(t *testing.T) {
	l := NewRedisLimiter(nil)

	ok, err := l.Allow(context.Background(), "sign_in", "a@b.c", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, l.Clear(context.Background(), "sign_in", "a@b.c"))
}
