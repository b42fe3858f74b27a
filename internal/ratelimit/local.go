package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Local is a per-key token bucket held in process, used when the API runs
// without Redis. Each key refills max tokens per window with a burst of max,
// so limits are per instance rather than global.
type Local struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (l *Local) Allow(_ context.Context, key string, window time.Duration, max int) (Decision, error) {
	now := time.Now()
	if l.now != nil {
		now = l.now()
	}
	if max <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: max, Reset: now.Add(window)}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buckets == nil {
		l.buckets = make(map[string]*bucket)
	}
	l.sweepLocked(now, window)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(window/time.Duration(max)), max)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	perToken := window / time.Duration(max)
	if !b.limiter.AllowN(now, 1) {
		return Decision{Allowed: false, Remaining: 0, Reset: now.Add(perToken)}, nil
	}
	tokens := b.limiter.TokensAt(now)
	missing := float64(max) - tokens
	return Decision{
		Allowed:   true,
		Remaining: int(math.Floor(tokens)),
		Reset:     now.Add(time.Duration(missing * float64(perToken))),
	}, nil
}

// sweepLocked drops buckets idle for a full window; they would be full again.
func (l *Local) sweepLocked(now time.Time, window time.Duration) {
	if now.Sub(l.lastSweep) < window {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= window {
			delete(l.buckets, key)
		}
	}
}
