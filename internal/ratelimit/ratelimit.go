// Package ratelimit implements a fixed-window request counter in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter increments key and makes sure it expires after window.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

type RedisCounter struct {
	R *redis.Client
}

func NewRedisCounter(addr string) *RedisCounter {
	return &RedisCounter{R: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.R.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.R.Ping(ctx).Err()
}

func (c *RedisCounter) Close() error {
	return c.R.Close()
}

// Limiter allows Limit hits per Window for each key. A nil Limiter allows everything.
type Limiter struct {
	counter Counter
	limit   int64
	window  time.Duration
	now     func() time.Time
}

func New(counter Counter, limit int64, window time.Duration) *Limiter {
	return &Limiter{counter: counter, limit: limit, window: window, now: time.Now}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Count     int64
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l == nil || l.counter == nil {
		return Decision{Allowed: true}, nil
	}
	bucket := l.now().Truncate(l.window)
	n, err := l.counter.Incr(ctx, bucketKey(key, bucket), l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: incr: %w", err)
	}
	d := Decision{
		Allowed: n <= l.limit,
		Count:   n,
		Limit:   l.limit,
		ResetAt: bucket.Add(l.window),
	}
	if n < l.limit {
		d.Remaining = l.limit - n
	}
	return d, nil
}

func bucketKey(key string, bucket time.Time) string {
	return "rl:" + key + ":" + strconv.FormatInt(bucket.Unix(), 10)
}
