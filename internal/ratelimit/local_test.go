package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalLimiter(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	l := &Local{now: func() time.Time { return now }}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "till-1", 3*time.Second, 3)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, 2-i, d.Remaining)
	}
	d, err := l.Allow(ctx, "till-1", 3*time.Second, 3)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, now.Add(time.Second), d.Reset)

	d, err = l.Allow(ctx, "till-2", 3*time.Second, 3)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// one token refills per second
	now = now.Add(time.Second)
	d, err = l.Allow(ctx, "till-1", 3*time.Second, 3)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Zero(t, d.Remaining)
}

func TestLocalLimiterSweepsIdleKeys(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	l := &Local{now: func() time.Time { return now }}
	ctx := context.Background()

	_, _ = l.Allow(ctx, "a", time.Second, 1)
	now = now.Add(2 * time.Second)
	_, _ = l.Allow(ctx, "b", time.Second, 1)
	require.Len(t, l.buckets, 1)
	require.Contains(t, l.buckets, "b")
}
