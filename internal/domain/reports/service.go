package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/core/types"
	"distripos/pkg/logger"
)

const (
	topProductsLimit = 5
	dashboardTTL     = 5 * time.Minute
	maxPeriod        = 366 * 24 * time.Hour
)

// Service provides report generation operations.
type Service struct {
	repo  Repository
	cache Cache
	now   func() time.Time
}

// NewService creates a new reports service. cache may be nil.
func NewService(repo Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// Dashboard aggregates completed sales of [from, to). A zero from defaults to
// 30 days before to; a zero to defaults to the end of the current cache
// window, so it always covers now.
func (s *Service) Dashboard(ctx context.Context, from, to time.Time) (*Dashboard, error) {
	scope, err := security.Authorize(ctx, security.ReportsView)
	if err != nil {
		return nil, err
	}

	p, err := s.period(from, to)
	if err != nil {
		return nil, err
	}

	key := cacheKey(p)
	if s.cache != nil {
		cached, ok, err := s.cache.GetDashboard(ctx, scope.TenantID, key)
		if err != nil {
			logger.Warn(ctx, "dashboard cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	d, err := s.build(ctx, scope.TenantID, p)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetDashboard(ctx, scope.TenantID, key, d, dashboardTTL); err != nil {
			logger.Warn(ctx, "dashboard cache write failed", "error", err)
		}
	}
	return d, nil
}

func (s *Service) build(ctx context.Context, tenantID id.ID, p Period) (*Dashboard, error) {
	daily, err := s.repo.SalesByDay(ctx, tenantID, p)
	if err != nil {
		return nil, fmt.Errorf("sales by day: %w", err)
	}
	top, err := s.repo.TopProducts(ctx, tenantID, p, topProductsLimit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	current, err := s.repo.SalesTotals(ctx, tenantID, p)
	if err != nil {
		return nil, fmt.Errorf("sales totals: %w", err)
	}
	previous, err := s.repo.SalesTotals(ctx, tenantID, p.Previous())
	if err != nil {
		return nil, fmt.Errorf("previous sales totals: %w", err)
	}

	if daily == nil {
		daily = []DailySales{}
	}
	if top == nil {
		top = []TopProduct{}
	}

	return &Dashboard{
		Period:       p,
		VentasPorDia: daily,
		TopProductos: top,
		KPIs:         ComputeKPIs(current, previous),
		GeneratedAt:  s.now(),
	}, nil
}

// ComputeKPIs derives the headline numbers. Growth is zero when the previous
// period sold nothing.
func ComputeKPIs(current, previous Totals) KPIs {
	k := KPIs{
		TotalVentas:    current.Total,
		CantidadVentas: current.Cantidad,
		TicketPromedio: decimal.Zero,
		Crecimiento:    decimal.Zero,
	}
	if current.Cantidad > 0 {
		k.TicketPromedio = current.Total.Div(decimal.NewFromInt(current.Cantidad))
	}
	if !previous.Total.IsZero() {
		k.Crecimiento = types.PercentOf(current.Total.Sub(previous.Total), previous.Total)
	}
	return k
}

func (s *Service) period(from, to time.Time) (Period, error) {
	if to.IsZero() {
		// Round up to the cache window so repeated default requests share a key.
		to = s.now().Truncate(dashboardTTL).Add(dashboardTTL)
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if !from.Before(to) {
		return Period{}, apperror.NewValidation("from must be before to")
	}
	if to.Sub(from) > maxPeriod {
		return Period{}, apperror.NewValidation("period cannot exceed one year")
	}
	return Period{From: from, To: to}, nil
}

func cacheKey(p Period) string {
	return p.From.UTC().Format(time.RFC3339) + "_" + p.To.UTC().Format(time.RFC3339)
}
