// Package cache holds the redis view cache, its invalidation paths and the
// cash-open lock.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"distripos/internal/core/id"
	"distripos/internal/domain/events"
	"distripos/internal/domain/reports"
)

const keyPrefix = "distripos"

// RedisCache stores rendered views per tenant. Invalidation bumps a
// generation counter per (tenant, scope); stale entries become unreachable
// and expire on their own TTL.
type RedisCache struct {
	rdb *redis.Client
}

var (
	_ reports.Cache      = (*RedisCache)(nil)
	_ events.Invalidator = (*RedisCache)(nil)
)

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Connect parses url and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Ping reports whether redis answers.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func generationKey(tenantID id.ID, scope string) string {
	return fmt.Sprintf("%s:%s:gen:%s", keyPrefix, tenantID, scope)
}

func viewKey(tenantID id.ID, scope string, gen int64, key string) string {
	return fmt.Sprintf("%s:%s:%s:%d:%s", keyPrefix, tenantID, scope, gen, key)
}

func (c *RedisCache) generation(ctx context.Context, tenantID id.ID, scope string) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey(tenantID, scope)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) get(ctx context.Context, tenantID id.ID, scope, key string, dst any) (bool, error) {
	gen, err := c.generation(ctx, tenantID, scope)
	if err != nil {
		return false, fmt.Errorf("read generation: %w", err)
	}
	raw, err := c.rdb.Get(ctx, viewKey(tenantID, scope, gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", scope, err)
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, tenantID id.ID, scope, key string, v any, ttl time.Duration) error {
	gen, err := c.generation(ctx, tenantID, scope)
	if err != nil {
		return fmt.Errorf("read generation: %w", err)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", scope, err)
	}
	return c.rdb.Set(ctx, viewKey(tenantID, scope, gen, key), raw, ttl).Err()
}

func (c *RedisCache) GetDashboard(ctx context.Context, tenantID id.ID, key string) (*reports.Dashboard, bool, error) {
	var d reports.Dashboard
	ok, err := c.get(ctx, tenantID, events.ScopeDashboard, key, &d)
	if err != nil || !ok {
		return nil, false, err
	}
	return &d, true, nil
}

func (c *RedisCache) SetDashboard(ctx context.Context, tenantID id.ID, key string, d *reports.Dashboard, ttl time.Duration) error {
	return c.set(ctx, tenantID, events.ScopeDashboard, key, d, ttl)
}

// Invalidate bumps the generation of every scope in one pipeline.
func (c *RedisCache) Invalidate(ctx context.Context, tenantID id.ID, scopes ...string) error {
	if len(scopes) == 0 {
		return nil
	}
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, scope := range scopes {
			pipe.Incr(ctx, generationKey(tenantID, scope))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate %v: %w", scopes, err)
	}
	return nil
}
