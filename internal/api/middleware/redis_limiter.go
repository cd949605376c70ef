package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every instance that uses
// the same redis. Keys look like "<prefix>:ip:<addr>".
type RedisLimiter struct {
	rdb    redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a limiter allowing limit requests per window
func NewRedisLimiter(rdb redis.Cmdable, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow implements Limiter. On redis errors the decision allows the request
// and the error is returned for logging.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := rl.prefix + ":ip:" + key
	open := Decision{Allowed: true, Limit: rl.limit, Remaining: rl.limit}

	var (
		incr   *redis.IntCmd
		ttlCmd *redis.DurationCmd
	)
	_, err := rl.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttlCmd = pipe.TTL(ctx, k)
		return nil
	})
	if err != nil {
		return open, fmt.Errorf("incr %s: %w", k, err)
	}
	count, ttl := incr.Val(), ttlCmd.Val()

	// A counter without a TTL opens the window, either on the first hit or
	// after an earlier EXPIRE was lost.
	if ttl < 0 {
		if err := rl.rdb.Expire(ctx, k, rl.window).Err(); err != nil {
			return open, fmt.Errorf("expire %s: %w", k, err)
		}
		ttl = rl.window
	}

	d := Decision{
		Allowed:   count <= int64(rl.limit),
		Limit:     rl.limit,
		Remaining: max(rl.limit-int(count), 0),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}
