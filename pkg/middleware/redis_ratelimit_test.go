package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisLimiter(t *testing.T, perMinute, burst int) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimiter(client, perMinute, burst), mr
}

func TestRedisLimiter_CountsPerKey(t *testing.T) {
	l, _ := setupRedisLimiter(t, 3, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "org:1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 3-(i+1), d.Remaining)
	}

	d, err := l.Allow(ctx, "org:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))

	// another tenant is unaffected
	d, err = l.Allow(ctx, "org:2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_WindowExpires(t *testing.T) {
	l, mr := setupRedisLimiter(t, 1, 0)
	ctx := context.Background()

	d, err := l.Allow(ctx, "org:1")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = l.Allow(ctx, "org:1")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	mr.FastForward(time.Minute + time.Second)

	d, err = l.Allow(ctx, "org:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_ErrorWhenRedisDown(t *testing.T) {
	l, mr := setupRedisLimiter(t, 3, 0)
	mr.Close()

	_, err := l.Allow(context.Background(), "org:1")
	assert.Error(t, err)
}

func TestRedisLimiter_Reset(t *testing.T) {
	l, _ := setupRedisLimiter(t, 1, 0)
	ctx := context.Background()

	d, _ := l.Allow(ctx, "org:1")
	require.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "org:1")
	require.False(t, d.Allowed)

	require.NoError(t, l.Reset(ctx, "org:1"))

	d, err := l.Allow(ctx, "org:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
