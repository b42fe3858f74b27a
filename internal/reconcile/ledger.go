package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// resolvedRetention bounds how long a resolution is remembered for gap tasks
// that arrive after it.
const resolvedRetention = 30 * 24 * time.Hour

// Ledger keeps open reconciliation gaps in Redis for back-office review.
type Ledger struct {
	Client *redis.Client
	Key    string
}

func (l Ledger) key() string {
	if l.Key == "" {
		return "reconcile:open"
	}
	return l.Key
}

func (l Ledger) resolvedKey() string {
	return l.key() + ":resolved"
}

// Record appends gap to the open list. A gap whose resolution was already
// processed is skipped and reported as false.
func (l Ledger) Record(ctx context.Context, gap Gap) (bool, error) {
	resolved, err := l.Client.SIsMember(ctx, l.resolvedKey(), gap.ref()).Result()
	if err != nil {
		return false, err
	}
	if resolved {
		return false, nil
	}
	data, err := json.Marshal(gap)
	if err != nil {
		return false, err
	}
	if err := l.Client.LPush(ctx, l.key(), data).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// Resolve removes the open gaps matching res and remembers the resolution so
// a late gap task does not reopen it. It returns the number of entries removed.
func (l Ledger) Resolve(ctx context.Context, res Resolution) (int64, error) {
	ref := res.gapRef()
	pipe := l.Client.TxPipeline()
	pipe.SAdd(ctx, l.resolvedKey(), ref)
	pipe.Expire(ctx, l.resolvedKey(), resolvedRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	raw, err := l.Client.LRange(ctx, l.key(), 0, -1).Result()
	if err != nil {
		return 0, err
	}
	var removed int64
	for _, item := range raw {
		var gap Gap
		if err := json.Unmarshal([]byte(item), &gap); err != nil {
			continue
		}
		if gap.ref() != ref {
			continue
		}
		n, err := l.Client.LRem(ctx, l.key(), 0, item).Result()
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

// List returns up to limit gaps, newest first.
func (l Ledger) List(ctx context.Context, limit int) ([]Gap, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := l.Client.LRange(ctx, l.key(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Gap, 0, len(raw))
	for _, item := range raw {
		var gap Gap
		if err := json.Unmarshal([]byte(item), &gap); err != nil {
			return nil, fmt.Errorf("decode ledger entry: %w", err)
		}
		out = append(out, gap)
	}
	return out, nil
}
