package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"distripos/internal/domain/registers/cash"
	"distripos/pkg/logger"
)

const defaultLockTTL = 10 * time.Second

// RedisLocker implements cash.Locker on redislock. Locks are never retried:
// a held key means another request is opening a session right now.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

var _ cash.Locker = (*RedisLocker)(nil)

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(context.Context), error) {
	lock, err := l.client.Obtain(ctx, lockKey(key), l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, cash.ErrLockBusy
	}
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx, "release lock", "key", key, "error", err)
		}
	}, nil
}

func lockKey(key string) string {
	return keyPrefix + ":lock:" + key
}
