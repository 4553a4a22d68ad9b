package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/core/id"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier keeps one counter per (tenant, key). Strict calls pass two
// args, range reservations pass the increment as the third.
type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{values: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	k := args[0].(id.ID).String() + ":" + args[1].(string)
	var increment int64 = 1
	if len(args) == 3 {
		increment = args[2].(int64)
	}
	m.values[k] += increment
	return &mockRow{val: m.values[k]}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := newMockQuerier()
	svc := NewStatic(q)
	ctx := context.Background()
	tenantID := id.New()
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(ctx, tenantID, SaleConfig(), nil, at)
	require.NoError(t, err)
	assert.Equal(t, "V-2026-00001", num)

	num, err = svc.GetNextNumber(ctx, tenantID, SaleConfig(), nil, at)
	require.NoError(t, err)
	assert.Equal(t, "V-2026-00002", num)
}

func TestGetNextNumber_TenantsAreIndependent(t *testing.T) {
	q := newMockQuerier()
	svc := NewStatic(q)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	a, b := id.New(), id.New()
	_, err := svc.Next(ctx, a, "V", at)
	require.NoError(t, err)

	num, err := svc.Next(ctx, b, "V", at)
	require.NoError(t, err)
	assert.Equal(t, "V-2026-00001", num)
}

func TestGetNextNumber_RequiresTenant(t *testing.T) {
	svc := NewStatic(newMockQuerier())
	_, err := svc.GetNextNumber(context.Background(), id.Nil(), SaleConfig(), nil, time.Now())
	assert.Error(t, err)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := newMockQuerier()
	svc := NewStatic(q)
	ctx := context.Background()
	tenantID := id.New()
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	opts := &Options{Strategy: StrategyCached, RangeSize: 10}
	cfg := DefaultConfig("ORD")

	num, err := svc.GetNextNumber(ctx, tenantID, cfg, opts, at)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-00001", num)
	assert.Equal(t, 1, q.calls)

	num, err = svc.GetNextNumber(ctx, tenantID, cfg, opts, at)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-00002", num)
	assert.Equal(t, 1, q.calls, "second number comes from the reserved range")

	for i := 0; i < 8; i++ {
		_, err = svc.GetNextNumber(ctx, tenantID, cfg, opts, at)
		require.NoError(t, err)
	}

	num, err = svc.GetNextNumber(ctx, tenantID, cfg, opts, at)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-00011", num)
	assert.Equal(t, 2, q.calls)
}

func TestBuildKey(t *testing.T) {
	svc := NewStatic(newMockQuerier())
	at := time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "V_2026", svc.buildKey(DefaultConfig("V"), at))
	assert.Equal(t, "V_2026_07", svc.buildKey(Config{Prefix: "V", ResetPeriod: "month"}, at))
	assert.Equal(t, "V", svc.buildKey(Config{Prefix: "V", ResetPeriod: "never"}, at))
}

func TestFormatNumber_WithoutYear(t *testing.T) {
	svc := NewStatic(newMockQuerier())
	got := svc.formatNumber(Config{Prefix: "R", PadWidth: 3}, time.Now(), 7)
	assert.Equal(t, "R-007", got)
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(42), ParseNumber("V-2026-00042"))
	assert.Equal(t, int64(7), ParseNumber("R-007"))
	assert.Equal(t, int64(-1), ParseNumber("garbage"))
	assert.Equal(t, int64(-1), ParseNumber("V-"))
}
