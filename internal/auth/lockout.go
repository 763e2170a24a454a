package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/helmdesk/helmdesk/internal/shared"
)

// Lockout tracks failed logins per username.
type Lockout interface {
	Locked(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) (int64, error)
	Clear(ctx context.Context, username string) error
}

// RedisLockout counts failures in a fixed window that starts at the first
// failure. The account is locked once the count reaches max.
type RedisLockout struct {
	client *redis.Client
	max    int64
	window time.Duration
}

// NewRedisLockout constructs a RedisLockout.
func NewRedisLockout(client *redis.Client, maxFailures int, window time.Duration) *RedisLockout {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RedisLockout{client: client, max: int64(maxFailures), window: window}
}

// Locked reports whether username has exhausted its attempts.
func (l *RedisLockout) Locked(ctx context.Context, username string) (bool, error) {
	count, err := l.client.Get(ctx, shared.LoginFailuresKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return count >= l.max, nil
}

// RecordFailure increments the failure counter and returns the new count.
func (l *RedisLockout) RecordFailure(ctx context.Context, username string) (int64, error) {
	key := shared.LoginFailuresKey(username)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// Clear resets the counter after a successful login.
func (l *RedisLockout) Clear(ctx context.Context, username string) error {
	return l.client.Del(ctx, shared.LoginFailuresKey(username)).Err()
}

// NopLockout never locks.
type NopLockout struct{}

func (NopLockout) Locked(context.Context, string) (bool, error)         { return false, nil }
func (NopLockout) RecordFailure(context.Context, string) (int64, error) { return 0, nil }
func (NopLockout) Clear(context.Context, string) error                  { return nil }

var (
	_ Lockout = (*RedisLockout)(nil)
	_ Lockout = NopLockout{}
)
