package cache

import (
	"context"
	"sync"
	"time"

	"distripos/internal/core/id"
	"distripos/internal/domain/events"
	"distripos/internal/domain/reports"
)

type localEntry struct {
	dashboard *reports.Dashboard
	expiresAt time.Time
}

type localKey struct {
	tenantID id.ID
	key      string
}

// LocalCache is the in-process dashboard cache used when redis is not
// configured. Cross-process invalidation arrives through a Listener.
type LocalCache struct {
	mu      sync.RWMutex
	entries map[localKey]localEntry
	now     func() time.Time
}

var (
	_ reports.Cache      = (*LocalCache)(nil)
	_ events.Invalidator = (*LocalCache)(nil)
)

func NewLocalCache() *LocalCache {
	return &LocalCache{
		entries: make(map[localKey]localEntry),
		now:     time.Now,
	}
}

func (c *LocalCache) GetDashboard(_ context.Context, tenantID id.ID, key string) (*reports.Dashboard, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[localKey{tenantID, key}]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.dashboard, true, nil
}

func (c *LocalCache) SetDashboard(_ context.Context, tenantID id.ID, key string, d *reports.Dashboard, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[localKey{tenantID, key}] = localEntry{dashboard: d, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Invalidate drops every dashboard of the tenant. All write scopes feed the
// dashboard, so any scope clears it.
func (c *LocalCache) Invalidate(_ context.Context, tenantID id.ID, scopes ...string) error {
	if len(scopes) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.tenantID == tenantID {
			delete(c.entries, k)
		}
	}
	return nil
}

// Multi fans one invalidation out to several targets and returns the first error.
type Multi []events.Invalidator

func (m Multi) Invalidate(ctx context.Context, tenantID id.ID, scopes ...string) error {
	var first error
	for _, inv := range m {
		if inv == nil {
			continue
		}
		if err := inv.Invalidate(ctx, tenantID, scopes...); err != nil && first == nil {
			first = err
		}
	}
	return first
}
