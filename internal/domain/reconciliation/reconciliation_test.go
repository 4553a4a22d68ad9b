package reconciliation_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/core/types"
	"distripos/internal/domain/catalogs/customer"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/documents/sale"
	"distripos/internal/domain/registers/receivable"
	"distripos/internal/infrastructure/storage/memory"
)

func TestRunOnConsistentData(t *testing.T) {
	svc := memory.NewServices()
	tenantID := id.New()
	ctx := memory.As(context.Background(), tenantID, memory.Legacy(security.LegacyAdmin))

	p := product.NewProduct(tenantID, "A", "Alfa")
	p.PrecioVenta = decimal.NewFromInt(10)
	p.StockActual = 10
	require.NoError(t, svc.Products.Create(ctx, p))
	c := customer.NewCustomer(tenantID, "Cliente")
	c.CuentaCorriente = true
	require.NoError(t, svc.Customers.Create(ctx, c))
	s, err := svc.Sales.Register(ctx, sale.Request{
		Items:         []sale.LineItem{{ProductID: p.ID, Quantity: 3}},
		CustomerID:    &c.ID,
		PaymentMethod: types.PaymentAccount,
	})
	require.NoError(t, err)
	_, err = svc.Sales.Void(ctx, sale.VoidRequest{SaleID: s.ID})
	require.NoError(t, err)

	report, err := svc.Reconciliation.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, 1, report.Tenants)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestRunReportsDrift(t *testing.T) {
	svc := memory.NewServices()
	tenantID := id.New()
	ctx := memory.As(context.Background(), tenantID, memory.Legacy(security.LegacyAdmin))

	p := product.NewProduct(tenantID, "A", "Alfa")
	p.StockActual = 10
	require.NoError(t, svc.Products.Create(ctx, p))
	c := customer.NewCustomer(tenantID, "Cliente")
	c.CuentaCorriente = true
	require.NoError(t, svc.Customers.Create(ctx, c))

	svc.Store.SetStock(p.ID, 7)
	_, err := svc.Store.Receivables().AdjustBalance(ctx, tenantID, c.ID, decimal.NewFromInt(40))
	require.NoError(t, err)

	report, err := svc.Reconciliation.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Clean())

	require.Len(t, report.Stock, 1)
	assert.Equal(t, p.ID, report.Stock[0].ProductID)
	assert.Equal(t, tenantID, report.Stock[0].TenantID)
	assert.Equal(t, int64(7), report.Stock[0].StockActual)
	assert.Equal(t, int64(10), report.Stock[0].Ledger)

	require.Len(t, report.Balances, 1)
	assert.True(t, decimal.NewFromInt(40).Equal(report.Balances[0].SaldoActual))
	assert.True(t, report.Balances[0].Ledger.IsZero())
}

func TestRandomOperationsKeepLedgersConsistent(t *testing.T) {
	for _, seed := range []int64{1, 7, 42, 2026} {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			svc := memory.NewServices()
			tenantID := id.New()
			ctx := memory.As(context.Background(), tenantID, memory.Legacy(security.LegacyAdmin))

			products := make([]*product.Product, 3)
			for i := range products {
				p := product.NewProduct(tenantID, fmt.Sprintf("P%d", i), fmt.Sprintf("Producto %d", i))
				p.PrecioVenta = decimal.NewFromInt(int64(10 * (i + 1)))
				p.StockActual = int64(1 + rng.Intn(15))
				require.NoError(t, svc.Products.Create(ctx, p))
				products[i] = p
			}
			customers := make([]*customer.Customer, 2)
			for i := range customers {
				c := customer.NewCustomer(tenantID, fmt.Sprintf("Cliente %d", i))
				c.CuentaCorriente = true
				require.NoError(t, svc.Customers.Create(ctx, c))
				customers[i] = c
			}
			_, err := svc.Cash.Open(ctx, decimal.NewFromInt(1000))
			require.NoError(t, err)

			methods := []types.PaymentMethod{types.PaymentCash, types.PaymentCard, types.PaymentTransfer, types.PaymentAccount}
			var completed []id.ID

			for step := 0; step < 60; step++ {
				var err error
				switch rng.Intn(4) {
				case 0:
					req := sale.Request{
						Items: []sale.LineItem{{
							ProductID: products[rng.Intn(len(products))].ID,
							Quantity:  int64(1 + rng.Intn(4)),
						}},
						PaymentMethod: methods[rng.Intn(len(methods))],
					}
					if req.PaymentMethod == types.PaymentAccount || rng.Intn(2) == 0 {
						req.CustomerID = &customers[rng.Intn(len(customers))].ID
					}
					var s *sale.Sale
					if s, err = svc.Sales.Register(ctx, req); err == nil {
						completed = append(completed, s.ID)
					}
				case 1:
					if len(completed) == 0 {
						continue
					}
					i := rng.Intn(len(completed))
					_, err = svc.Sales.Void(ctx, sale.VoidRequest{SaleID: completed[i]})
					if err == nil {
						completed = append(completed[:i], completed[i+1:]...)
					}
				case 2:
					delta := int64(rng.Intn(7) - 3)
					if delta == 0 {
						delta = 1
					}
					_, err = svc.Products.AdjustStock(ctx, products[rng.Intn(len(products))].ID, delta, "Ajuste")
				case 3:
					_, err = svc.Receivable.RegisterPayment(ctx, receivable.PaymentInput{
						CustomerID: customers[rng.Intn(len(customers))].ID,
						Monto:      decimal.NewFromInt(int64(1 + rng.Intn(50))),
						MetodoPago: methods[rng.Intn(len(methods)-1)],
					})
				}
				if err != nil {
					require.True(t, apperror.IsAppError(err), "step %d: %v", step, err)
					require.False(t, apperror.HasCode(err, apperror.CodeInternal), "step %d: %v", step, err)
				}
			}

			for _, p := range products {
				current, err := svc.Store.Products().GetByID(context.Background(), tenantID, p.ID)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, current.StockActual, int64(0))
			}

			report, err := svc.Reconciliation.Run(context.Background())
			require.NoError(t, err)
			assert.True(t, report.Clean(), "stock drift %v, balance drift %v", report.Stock, report.Balances)
		})
	}
}
