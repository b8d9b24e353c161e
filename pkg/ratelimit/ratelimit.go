package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter allows one action per subject within a window.
type Limiter interface {
	// Allow reports whether the action may proceed and starts a new window
	// when it does.
	Allow(ctx context.Context, action, subject string, window time.Duration) (bool, error)
	Clear(ctx context.Context, action, subject string) error
}

type redisLimiter struct {
	rdb *redis.Client
}

func NewRedisLimiter(rdb *redis.Client) Limiter {
	return &redisLimiter{rdb: rdb}
}

func Key(action, subject string) string {
	return fmt.Sprintf("rate_limit:%s:%s", action, subject)
}

func (l *redisLimiter) Allow(ctx context.Context, action, subject string, window time.Duration) (bool, error) {
	if l.rdb == nil || window <= 0 {
		return true, nil
	}

	wasSet, err := l.rdb.SetNX(ctx, Key(action, subject), "locked", window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return wasSet, nil
}

func (l *redisLimiter) Clear(ctx context.Context, action, subject string) error {
	if l.rdb == nil {
		return nil
	}
	return l.rdb.Del(ctx, Key(action, subject)).Err()
}
