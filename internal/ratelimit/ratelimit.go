package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a keyed sliding-window counter. Allow records an attempt for key
// and reports whether it fits in the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter keeps the window in process memory. Use it for single
// instance deployments only.
type MemoryLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	requests map[string][]time.Time // key -> timestamps
	mu       sync.Mutex
}

func NewMemoryLimiter(maxRequests int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:      maxRequests,
		window:   window,
		now:      time.Now,
		requests: make(map[string][]time.Time),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	windowStart := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	// Clean old requests outside the window
	valid := l.requests[key][:0]
	for _, ts := range l.requests[key] {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= l.max {
		l.requests[key] = valid
		return false, nil
	}
	l.requests[key] = append(valid, now)
	return true, nil
}

// RedisLimiter keeps each window in a Redis sorted set scored by time, so
// every instance of the service shares the same counters.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	max    int
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client redis.Cmdable, prefix string, maxRequests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, max: maxRequests, window: window, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now()
	redisKey := l.prefix + ":" + key
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(now.Add(-l.window).UnixNano(), 10))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit window: %w", err)
	}

	if count.Val() > int64(l.max) {
		// Rejected attempts do not consume the window.
		if err := l.client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return false, fmt.Errorf("rate limit window: %w", err)
		}
		return false, nil
	}
	return true, nil
}
