package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (Limiter, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return Limiter{Client: client, Prefix: "test:", now: func() time.Time { return now }}, &now
}

func TestLimiterSlidingWindow(t *testing.T) {
	limiter, now := newTestLimiter(t)
	ctx := context.Background()
	window := 2 * time.Second

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, "till-1", window, 2)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, 1-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "till-1", window, 2)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Remaining)
	require.WithinDuration(t, now.Add(window), d.Reset, time.Microsecond)

	// another till has its own window
	d, err = limiter.Allow(ctx, "till-2", window, 2)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	*now = now.Add(window + time.Millisecond)
	d, err = limiter.Allow(ctx, "till-1", window, 2)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 1, d.Remaining)
}

func TestLimiterRejectedRequestsAreNotCounted(t *testing.T) {
	limiter, now := newTestLimiter(t)
	ctx := context.Background()
	window := time.Second

	_, err := limiter.Allow(ctx, "k", window, 1)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		*now = now.Add(100 * time.Millisecond)
		d, err := limiter.Allow(ctx, "k", window, 1)
		require.NoError(t, err)
		require.False(t, d.Allowed)
	}

	*now = now.Add(501 * time.Millisecond)
	d, err := limiter.Allow(ctx, "k", window, 1)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestLimiterWithoutRedisAllows(t *testing.T) {
	d, err := Limiter{}.Allow(context.Background(), "k", time.Second, 3)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 3, d.Remaining)
}
