package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](time.Minute)
	defer c.Close()

	c.Set(ctx, "a", 1, time.Minute)
	c.Set(ctx, "b", 2, time.Minute)

	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)

	assert.Equal(t, 2, c.Len())
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := New[string, string](time.Minute)
	defer c.Close()

	c.Set(ctx, "k", "v", 10*time.Millisecond)

	_, ok := c.Get(ctx, "k")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok = c.Get(ctx, "k")
	assert.False(t, ok, "expired entry must not be returned")
}

func TestCacheOverwrite(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](time.Minute)
	defer c.Close()

	c.Set(ctx, "k", 1, time.Minute)
	c.Set(ctx, "k", 2, time.Minute)

	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](time.Minute)
	defer c.Close()

	c.Set(ctx, "k", 1, time.Minute)
	c.Delete(ctx, "k")

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestCacheCloseIdempotent(t *testing.T) {
	c := New[string, int](time.Minute)
	c.Close()
	c.Close()
}
