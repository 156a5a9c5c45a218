package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// LimitWindow is how long a client's submission count lives.
const LimitWindow = 24 * time.Hour

// Limiter counts submissions per client key within a fixed window.
type Limiter struct {
	client goredis.UniversalClient
	prefix string
	limit  int64
}

// NewLimiter allows limit submissions per client per window.
func NewLimiter(client goredis.UniversalClient, prefix string, limit int) *Limiter {
	return &Limiter{client: client, prefix: prefix, limit: int64(limit)}
}

// Allow counts one submission for key. When the limit is exceeded it returns
// false and the time until the window resets.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.prefix + ":" + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("incr %s: %w", k, err)
	}
	// The window starts with the first submission.
	if count == 1 {
		if err := l.client.Expire(ctx, k, LimitWindow).Err(); err != nil {
			return false, 0, fmt.Errorf("expire %s: %w", k, err)
		}
	}
	if count <= l.limit {
		return true, 0, nil
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ttl %s: %w", k, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return false, ttl, nil
}
