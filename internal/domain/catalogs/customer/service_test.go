package customer_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/core/types"
	"distripos/internal/domain"
	"distripos/internal/domain/catalogs/customer"
	"distripos/internal/domain/registers/receivable"
	"distripos/internal/infrastructure/storage/memory"
)

func setup(t *testing.T) (*memory.Services, id.ID, context.Context) {
	t.Helper()
	svc := memory.NewServices()
	tenantID := id.New()
	return svc, tenantID, memory.As(context.Background(), tenantID, memory.Legacy(security.LegacyAdmin))
}

func TestCreateStartsWithZeroBalance(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	c := customer.NewCustomer(tenantID, "  Ferretería Sur ")
	c.SaldoActual = decimal.NewFromInt(999)
	require.NoError(t, svc.Customers.Create(ctx, c))

	got, err := svc.Customers.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.SaldoActual.IsZero())
	assert.Equal(t, "Ferretería Sur", got.Nombre)
}

func TestCreateValidation(t *testing.T) {
	svc, tenantID, ctx := setup(t)

	c := customer.NewCustomer(tenantID, "")
	assert.True(t, apperror.HasCode(svc.Customers.Create(ctx, c), apperror.CodeValidation))

	c = customer.NewCustomer(tenantID, "Con descuento")
	c.DescuentoEspecial = decimal.NewFromInt(120)
	assert.True(t, apperror.HasCode(svc.Customers.Create(ctx, c), apperror.CodeValidation))
}

func TestUpdateKeepsBalance(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	c := customer.NewCustomer(tenantID, "Cliente")
	c.CuentaCorriente = true
	require.NoError(t, svc.Customers.Create(ctx, c))
	_, err := svc.Receivable.Debit(ctx, tenantID, c.ID, decimal.NewFromInt(50), "Saldo inicial", "manual")
	require.NoError(t, err)

	next := *c
	next.Nombre = "Cliente SA"
	next.SaldoActual = decimal.Zero
	require.NoError(t, svc.Customers.Update(ctx, &next))

	got, err := svc.Customers.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cliente SA", got.Nombre)
	assert.True(t, decimal.NewFromInt(50).Equal(got.SaldoActual))
}

func TestDeleteWithBalanceConflicts(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	c := customer.NewCustomer(tenantID, "Deudor")
	c.CuentaCorriente = true
	require.NoError(t, svc.Customers.Create(ctx, c))
	_, err := svc.Receivable.Debit(ctx, tenantID, c.ID, decimal.NewFromInt(10), "Venta", "ref")
	require.NoError(t, err)

	err = svc.Customers.Delete(ctx, c.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	_, err = svc.Receivable.RegisterPayment(ctx, receivable.PaymentInput{
		CustomerID: c.ID, Monto: decimal.NewFromInt(10), MetodoPago: types.PaymentTransfer,
	})
	require.NoError(t, err)
	assert.NoError(t, svc.Customers.Delete(ctx, c.ID))
}

func TestListSearch(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	for _, name := range []string{"Alfa", "Beta", "Alfajores"} {
		require.NoError(t, svc.Customers.Create(ctx, customer.NewCustomer(tenantID, name)))
	}

	res, err := svc.Customers.List(ctx, domain.ListFilter{Search: "alfa"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.TotalCount)
}

func TestCustomersAreTenantScoped(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	c := customer.NewCustomer(tenantID, "Privado")
	require.NoError(t, svc.Customers.Create(ctx, c))

	other := memory.As(context.Background(), id.New(), memory.Legacy(security.LegacyAdmin))
	_, err := svc.Customers.Get(other, c.ID)
	assert.True(t, apperror.IsNotFound(err))
}
