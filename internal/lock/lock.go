package lock

import (
	"context"
	"errors"
	"time"
)

// Locker serializes work on a key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

var errNoCallback = errors.New("lock: callback not provided")

func defaultTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 30 * time.Second
	}
	return ttl
}
