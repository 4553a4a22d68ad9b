package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/core/id"
	"distripos/internal/domain/events"
	"distripos/internal/domain/reports"
	"distripos/internal/infrastructure/storage/postgres"
)

func TestLocalCache_SetGet(t *testing.T) {
	c := NewLocalCache()
	ctx := context.Background()
	tenantID := id.New()
	d := &reports.Dashboard{GeneratedAt: time.Now()}

	require.NoError(t, c.SetDashboard(ctx, tenantID, "k", d, time.Minute))

	got, ok, err := c.GetDashboard(ctx, tenantID, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, d, got)

	_, ok, _ = c.GetDashboard(ctx, id.New(), "k")
	assert.False(t, ok, "other tenant must not see the entry")
}

func TestLocalCache_Expires(t *testing.T) {
	c := NewLocalCache()
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()
	tenantID := id.New()

	require.NoError(t, c.SetDashboard(ctx, tenantID, "k", &reports.Dashboard{}, time.Minute))
	now = now.Add(2 * time.Minute)

	_, ok, err := c.GetDashboard(ctx, tenantID, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalCache_InvalidateIsTenantScoped(t *testing.T) {
	c := NewLocalCache()
	ctx := context.Background()
	a, b := id.New(), id.New()

	require.NoError(t, c.SetDashboard(ctx, a, "k", &reports.Dashboard{}, time.Minute))
	require.NoError(t, c.SetDashboard(ctx, b, "k", &reports.Dashboard{}, time.Minute))

	require.NoError(t, c.Invalidate(ctx, a, events.ScopeSales))

	_, ok, _ := c.GetDashboard(ctx, a, "k")
	assert.False(t, ok)
	_, ok, _ = c.GetDashboard(ctx, b, "k")
	assert.True(t, ok)
}

type recorder struct {
	calls [][]string
	err   error
}

func (r *recorder) Invalidate(_ context.Context, _ id.ID, scopes ...string) error {
	r.calls = append(r.calls, scopes)
	return r.err
}

func TestMulti_CallsAllAndReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	first, second := &recorder{err: boom}, &recorder{}

	err := Multi{first, nil, second}.Invalidate(context.Background(), id.New(), events.ScopeCash)

	assert.ErrorIs(t, err, boom)
	assert.Len(t, first.calls, 1)
	assert.Len(t, second.calls, 1)
}

func TestOutboxHandler_ReplaysScopes(t *testing.T) {
	rec := &recorder{}
	h := NewOutboxHandler(rec)

	msg := &postgres.OutboxMessage{
		ID:       id.New(),
		TenantID: id.New(),
		Payload:  []byte(`{"scopes":["sales","inventory"]}`),
	}
	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Equal(t, [][]string{{"sales", "inventory"}}, rec.calls)
}

func TestOutboxHandler_DropsMalformedPayload(t *testing.T) {
	rec := &recorder{}
	h := NewOutboxHandler(rec)

	err := h.Handle(context.Background(), &postgres.OutboxMessage{ID: id.New(), Payload: []byte("{")})
	assert.NoError(t, err)
	assert.Empty(t, rec.calls)
}

func TestListener_HandleAppliesPayload(t *testing.T) {
	rec := &recorder{}
	l := NewListener(nil, rec)
	tenantID := id.New()

	l.handle(context.Background(), `{"tenant_id":"`+tenantID.String()+`","scopes":["dashboard"]}`)
	l.handle(context.Background(), `not json`)

	assert.Equal(t, [][]string{{"dashboard"}}, rec.calls)
}

func TestKeys(t *testing.T) {
	tenantID := id.New()
	assert.Equal(t, "distripos:"+tenantID.String()+":gen:dashboard", generationKey(tenantID, events.ScopeDashboard))
	assert.Equal(t, "distripos:"+tenantID.String()+":dashboard:3:x", viewKey(tenantID, events.ScopeDashboard, 3, "x"))
	assert.Equal(t, "distripos:lock:cash:open:t", lockKey("cash:open:t"))
}
