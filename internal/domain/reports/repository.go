package reports

import (
	"context"
	"time"

	"distripos/internal/core/id"
)

// Repository reads sale aggregates. Only COMPLETADA sales count.
type Repository interface {
	SalesByDay(ctx context.Context, tenantID id.ID, p Period) ([]DailySales, error)
	TopProducts(ctx context.Context, tenantID id.ID, p Period, limit int) ([]TopProduct, error)
	SalesTotals(ctx context.Context, tenantID id.ID, p Period) (Totals, error)
}

// Cache stores rendered dashboards per tenant.
type Cache interface {
	GetDashboard(ctx context.Context, tenantID id.ID, key string) (*Dashboard, bool, error)
	SetDashboard(ctx context.Context, tenantID id.ID, key string, d *Dashboard, ttl time.Duration) error
}
