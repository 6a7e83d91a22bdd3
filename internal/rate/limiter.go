package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	Enabled     bool
	MaxFailures int
	Window      time.Duration
}

// Limiter counts failed logins per client IP in fixed Redis windows. It sits
// in front of the per-account lockout and is shared by every instance that
// points at the same Redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Check reports ErrRateLimited once ip has recorded MaxFailures failures in
// the current window, together with the time left in it.
func (l *Limiter) Check(ctx context.Context, ip string) (time.Duration, error) {
	if l == nil || !l.config.Enabled || ip == "" {
		return 0, nil
	}

	key := loginIPKey(ip)
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < int64(l.config.MaxFailures) {
		return 0, nil
	}

	ttl, err := l.redis.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl < 0 {
		ttl = l.config.Window
	}
	return ttl, ErrRateLimited
}

// RecordFailure adds one failure for ip.
func (l *Limiter) RecordFailure(ctx context.Context, ip string) error {
	if l == nil || !l.config.Enabled || ip == "" {
		return nil
	}

	key := loginIPKey(ip)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

// Reset clears the counter for ip after a successful login.
func (l *Limiter) Reset(ctx context.Context, ip string) error {
	if l == nil || !l.config.Enabled || ip == "" {
		return nil
	}
	if err := l.redis.Del(ctx, loginIPKey(ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func loginIPKey(ip string) string {
	return "nli:" + ip
}
