// Package lock provides short-lived per-aggregate mutual exclusion.
// This is part of the platform layer and contains no business logic.
package lock

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"repair_ops_backend/platform/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another holder owns the lock.
var ErrNotAcquired = errors.New("lock held by another request")

// Release frees a held lock. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker acquires a named lock for at most ttl.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

const keyPrefix = "lock:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a compare-and-delete release.
type RedisLocker struct {
	rdb redis.UniversalClient
}

// NewRedisLocker wraps an existing Redis client.
func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

// NewFromConfig builds a Locker from configuration. Without a Redis URL it
// returns a no-op locker and the caller relies on optimistic checks alone.
func NewFromConfig(cfg config.RedisConfig) (Locker, func() error, error) {
	redisURL := strings.TrimSpace(cfg.GetRedisURL())
	if redisURL == "" {
		return NoopLocker{}, func() error { return nil }, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}

	client := redis.NewClient(opt)
	return NewRedisLocker(client), client.Close, nil
}

// Acquire tries once to take the lock. It does not wait for a busy lock.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive")
	}

	fullKey := keyPrefix + key
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	released := false
	return func(ctx context.Context) error {
		if released {
			return nil
		}
		released = true
		if err := releaseScript.Run(ctx, l.rdb, []string{fullKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release lock: %w", err)
		}
		return nil
	}, nil
}

// NoopLocker always succeeds.
type NoopLocker struct{}

// Acquire returns a release func that does nothing.
func (NoopLocker) Acquire(context.Context, string, time.Duration) (Release, error) {
	return func(context.Context) error { return nil }, nil
}
