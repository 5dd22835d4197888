package scanguard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	g := NewMemoryGuard(5 * time.Second)
	g.now = func() time.Time { return now }

	ok, err := g.Acquire(ctx, "d1:qr_abc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = g.Acquire(ctx, "d1:qr_abc")
	assert.False(t, ok, "second scan inside the window is refused")

	ok, _ = g.Acquire(ctx, "d2:qr_abc")
	assert.True(t, ok, "other keys are independent")

	now = now.Add(6 * time.Second)
	ok, _ = g.Acquire(ctx, "d1:qr_abc")
	assert.True(t, ok, "lock expires after ttl")

	require.NoError(t, g.Release(ctx, "d1:qr_abc"))
	ok, _ = g.Acquire(ctx, "d1:qr_abc")
	assert.True(t, ok, "released lock can be taken again")
}

func TestRedisGuard(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	g := NewRedisGuard(client, 5*time.Second)
	t.Cleanup(func() { g.Close() })

	ok, err := g.Acquire(ctx, "d1:qr_abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("scan:d1:qr_abc"))

	ok, err = g.Acquire(ctx, "d1:qr_abc")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(6 * time.Second)
	ok, err = g.Acquire(ctx, "d1:qr_abc")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, g.Release(ctx, "d1:qr_abc"))
	assert.False(t, mr.Exists("scan:d1:qr_abc"))
}

func TestRedisGuardUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	g := NewRedisGuard(client, time.Second)
	mr.Close()

	_, err := g.Acquire(context.Background(), "k")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	g, err := New("", time.Second)
	require.NoError(t, err)
	assert.IsType(t, &MemoryGuard{}, g)

	_, err = New("not a url", time.Second)
	assert.Error(t, err)

	g, err = New("redis://localhost:6379/0", time.Second)
	require.NoError(t, err)
	assert.IsType(t, &RedisGuard{}, g)
}
