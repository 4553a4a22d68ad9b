package reports_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/core/types"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/documents/sale"
	"distripos/internal/domain/reports"
	"distripos/internal/infrastructure/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeKPIs(t *testing.T) {
	k := reports.ComputeKPIs(
		reports.Totals{Total: dec("1500"), Cantidad: 3},
		reports.Totals{Total: dec("1000"), Cantidad: 2},
	)
	assert.True(t, dec("1500").Equal(k.TotalVentas))
	assert.Equal(t, int64(3), k.CantidadVentas)
	assert.True(t, dec("500").Equal(k.TicketPromedio))
	assert.True(t, dec("50").Equal(k.Crecimiento))
}

func TestComputeKPIsWithoutHistory(t *testing.T) {
	k := reports.ComputeKPIs(reports.Totals{Total: dec("10"), Cantidad: 1}, reports.Totals{Total: decimal.Zero})
	assert.True(t, k.Crecimiento.IsZero())

	empty := reports.ComputeKPIs(reports.Totals{Total: decimal.Zero}, reports.Totals{Total: decimal.Zero})
	assert.True(t, empty.TicketPromedio.IsZero())
}

func TestPeriodPrevious(t *testing.T) {
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	p := reports.Period{From: from, To: from.AddDate(0, 0, 10)}
	prev := p.Previous()
	assert.Equal(t, from.AddDate(0, 0, -10), prev.From)
	assert.Equal(t, from, prev.To)
}

type fakeCache struct {
	stored map[string]*reports.Dashboard
	gets   int
	err    error
}

func (c *fakeCache) GetDashboard(_ context.Context, tenantID id.ID, key string) (*reports.Dashboard, bool, error) {
	c.gets++
	if c.err != nil {
		return nil, false, c.err
	}
	d, ok := c.stored[tenantID.String()+key]
	return d, ok, nil
}

func (c *fakeCache) SetDashboard(_ context.Context, tenantID id.ID, key string, d *reports.Dashboard, _ time.Duration) error {
	if c.stored == nil {
		c.stored = map[string]*reports.Dashboard{}
	}
	c.stored[tenantID.String()+key] = d
	return nil
}

func seed(t *testing.T) (*memory.Services, context.Context) {
	t.Helper()
	svc := memory.NewServices()
	tenantID := id.New()
	ctx := memory.As(context.Background(), tenantID, memory.Legacy(security.LegacyAdmin))

	a := product.NewProduct(tenantID, "A", "Alfa")
	a.PrecioVenta = dec("100")
	a.TasaIva = decimal.Zero
	a.StockActual = 50
	b := product.NewProduct(tenantID, "B", "Beta")
	b.PrecioVenta = dec("10")
	b.TasaIva = decimal.Zero
	b.StockActual = 50
	require.NoError(t, svc.Products.Create(ctx, a))
	require.NoError(t, svc.Products.Create(ctx, b))

	register := func(items ...sale.LineItem) *sale.Sale {
		s, err := svc.Sales.Register(ctx, sale.Request{Items: items, PaymentMethod: types.PaymentCard})
		require.NoError(t, err)
		return s
	}
	register(sale.LineItem{ProductID: a.ID, Quantity: 2})
	register(sale.LineItem{ProductID: b.ID, Quantity: 5}, sale.LineItem{ProductID: a.ID, Quantity: 1})
	voided := register(sale.LineItem{ProductID: b.ID, Quantity: 30})
	_, err := svc.Sales.Void(ctx, sale.VoidRequest{SaleID: voided.ID})
	require.NoError(t, err)
	return svc, ctx
}

func TestDashboardCountsCompletedSales(t *testing.T) {
	svc, ctx := seed(t)
	now := time.Now()

	d, err := svc.Reports.Dashboard(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)

	assert.True(t, dec("350").Equal(d.KPIs.TotalVentas), "got %s", d.KPIs.TotalVentas)
	assert.Equal(t, int64(2), d.KPIs.CantidadVentas)
	assert.True(t, dec("175").Equal(d.KPIs.TicketPromedio))

	require.Len(t, d.TopProductos, 2)
	assert.Equal(t, "Alfa", d.TopProductos[0].Nombre)
	assert.Equal(t, int64(3), d.TopProductos[0].Cantidad)
	assert.True(t, dec("300").Equal(d.TopProductos[0].Total))

	require.Len(t, d.VentasPorDia, 1)
	assert.True(t, dec("350").Equal(d.VentasPorDia[0].Total))
}

func TestDashboardPeriodValidation(t *testing.T) {
	svc, ctx := seed(t)
	now := time.Now()

	_, err := svc.Reports.Dashboard(ctx, now, now.Add(-time.Hour))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.Reports.Dashboard(ctx, now.AddDate(-2, 0, 0), now)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	d, err := svc.Reports.Dashboard(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.InDelta(t, 30*24, d.Period.To.Sub(d.Period.From).Hours(), 1)
}

func TestDashboardRequiresReportsPermission(t *testing.T) {
	svc, _ := seed(t)
	seller := memory.As(context.Background(), id.New(), memory.Legacy(security.LegacyVendedor))
	_, err := svc.Reports.Dashboard(seller, time.Time{}, time.Time{})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
}

func TestDashboardUsesCache(t *testing.T) {
	svc, ctx := seed(t)
	cache := &fakeCache{}
	reportsSvc := reports.NewService(svc.Store.Reports(), cache)
	from, to := time.Now().Add(-time.Hour), time.Now().Add(time.Hour)

	first, err := reportsSvc.Dashboard(ctx, from, to)
	require.NoError(t, err)
	second, err := reportsSvc.Dashboard(ctx, from, to)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 2, cache.gets)
}

func TestDashboardIgnoresCacheErrors(t *testing.T) {
	svc, ctx := seed(t)
	reportsSvc := reports.NewService(svc.Store.Reports(), &fakeCache{err: errors.New("redis down")})

	d, err := reportsSvc.Dashboard(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.KPIs.CantidadVentas)
}
