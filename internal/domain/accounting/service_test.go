package accounting_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/core/tenant"
	"distripos/internal/core/types"
	"distripos/internal/domain/accounting"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/documents/sale"
	"distripos/internal/infrastructure/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func registered(t *testing.T) (*memory.Services, id.ID, context.Context) {
	t.Helper()
	svc := memory.NewServices()
	reg, err := svc.Auth.RegisterTenant(context.Background(), tenant.Registration{
		Empresa:       "Distribuidora Centro",
		CUIT:          "30-12345678-9",
		AdminEmail:    "admin@centro.test",
		AdminPassword: "supersecreto",
	})
	require.NoError(t, err)
	ctx := memory.As(context.Background(), reg.Tenant.ID, memory.Legacy(security.LegacyAdmin))
	return svc, reg.Tenant.ID, ctx
}

func TestMonthlySummary(t *testing.T) {
	svc, tenantID, ctx := registered(t)

	p := product.NewProduct(tenantID, "A", "Alfa")
	p.PrecioVenta = dec("1000")
	p.TasaIva = decimal.Zero
	p.StockActual = 10
	require.NoError(t, svc.Products.Create(ctx, p))
	_, err := svc.Sales.Register(ctx, sale.Request{
		Items:         []sale.LineItem{{ProductID: p.ID, Quantity: 2}},
		PaymentMethod: types.PaymentTransfer,
	})
	require.NoError(t, err)

	_, err = svc.Accounting.RecordExpense(ctx, accounting.ExpenseInput{
		Categoria: "Servicios", Descripcion: "Luz", Monto: dec("150.50"),
	})
	require.NoError(t, err)
	_, err = svc.Accounting.RecordTaxMovement(ctx, accounting.TaxInput{
		Tipo: accounting.TaxRetention, Operacion: accounting.TaxSuffered, Monto: dec("35"),
	})
	require.NoError(t, err)

	sum, err := svc.Accounting.MonthlySummary(ctx, time.Time{})
	require.NoError(t, err)
	assert.True(t, dec("2000").Equal(sum.TotalFacturado))
	assert.True(t, dec("150.50").Equal(sum.TotalGastos))
	assert.True(t, dec("70").Equal(sum.IIBBEstimado), "3.5%% of 2000, got %s", sum.IIBBEstimado)
	assert.Len(t, sum.MovimientosImpuesto, 1)
	require.Len(t, sum.GastosRecientes, 1)
	assert.Equal(t, types.PaymentCash, sum.GastosRecientes[0].MetodoPago)
	require.NotNil(t, sum.Config)
	assert.Equal(t, "30-12345678-9", sum.Config.CUIT)
}

func TestMonthlySummaryOfAnotherMonthIsEmpty(t *testing.T) {
	svc, _, ctx := registered(t)
	_, err := svc.Accounting.RecordExpense(ctx, accounting.ExpenseInput{
		Categoria: "Alquiler", Descripcion: "Local", Monto: dec("900"),
	})
	require.NoError(t, err)

	sum, err := svc.Accounting.MonthlySummary(ctx, time.Now().AddDate(0, -2, 0))
	require.NoError(t, err)
	assert.True(t, sum.TotalGastos.IsZero())
	assert.Empty(t, sum.MovimientosImpuesto)
}

func TestMonthlySummaryWithoutCompanyConfig(t *testing.T) {
	svc := memory.NewServices()
	ctx := memory.As(context.Background(), id.New(), memory.Legacy(security.LegacyAdmin))

	sum, err := svc.Accounting.MonthlySummary(ctx, time.Time{})
	require.NoError(t, err)
	assert.Nil(t, sum.Config)
	assert.True(t, sum.IIBBEstimado.IsZero())
}

func TestRecordValidation(t *testing.T) {
	svc, _, ctx := registered(t)

	tests := []struct {
		name string
		in   accounting.ExpenseInput
	}{
		{"no category", accounting.ExpenseInput{Descripcion: "x", Monto: dec("1")}},
		{"no description", accounting.ExpenseInput{Categoria: "x", Monto: dec("1")}},
		{"zero amount", accounting.ExpenseInput{Categoria: "x", Descripcion: "x"}},
		{"bad method", accounting.ExpenseInput{Categoria: "x", Descripcion: "x", Monto: dec("1"), MetodoPago: "CHEQUE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Accounting.RecordExpense(ctx, tt.in)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
		})
	}

	_, err := svc.Accounting.RecordTaxMovement(ctx, accounting.TaxInput{
		Tipo: "IVA", Operacion: accounting.TaxApplied, Monto: dec("1"),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestAccountingPermissions(t *testing.T) {
	svc, tenantID, _ := registered(t)
	seller := memory.As(context.Background(), tenantID, memory.Legacy(security.LegacyVendedor))

	_, err := svc.Accounting.MonthlySummary(seller, time.Time{})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	viewer := memory.As(context.Background(), tenantID, memory.Dynamic("Contador", security.AccountingView))
	_, err = svc.Accounting.RecordExpense(viewer, accounting.ExpenseInput{Categoria: "x", Descripcion: "x", Monto: dec("1")})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
}

func TestEstimateIIBB(t *testing.T) {
	assert.True(t, dec("35").Equal(accounting.EstimateIIBB(dec("1000"), dec("3.5"))))
}

func TestMonthRange(t *testing.T) {
	from, to := accounting.MonthRange(time.Date(2026, 12, 17, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), to)
}
