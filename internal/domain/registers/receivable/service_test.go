package receivable_test

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
	"distripos/internal/domain/catalogs/customer"
	"distripos/internal/domain/registers/cash"
	"distripos/internal/domain/registers/receivable"
	"distripos/internal/infrastructure/storage/memory"
)

func setup(t *testing.T, account bool) (*memory.Services, context.Context, *customer.Customer) {
	t.Helper()
	svc := memory.NewServices()
	tenantID := id.New()
	ctx := memory.As(context.Background(), tenantID, memory.Legacy(security.LegacyAdmin))

	c := customer.NewCustomer(tenantID, "Taller Norte")
	c.CuentaCorriente = account
	require.NoError(t, svc.Customers.Create(ctx, c))
	if account {
		_, err := svc.Receivable.Debit(ctx, tenantID, c.ID, decimal.NewFromInt(500), "Venta V-2026-00001", "sale-1")
		require.NoError(t, err)
	}
	return svc, ctx, c
}

func TestCashPaymentEntersOpenSession(t *testing.T) {
	svc, ctx, c := setup(t, true)
	_, err := svc.Cash.Open(ctx, decimal.Zero)
	require.NoError(t, err)

	res, err := svc.Receivable.RegisterPayment(ctx, receivable.PaymentInput{
		CustomerID: c.ID, Monto: decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(res.SaldoActual))
	assert.Equal(t, receivable.Credit, res.Movement.Tipo)
	require.NotNil(t, res.CashMovementID)

	view, err := svc.Cash.Current(ctx)
	require.NoError(t, err)
	require.Len(t, view.Movements, 1)
	m := view.Movements[0]
	assert.Equal(t, *res.CashMovementID, m.ID)
	assert.Equal(t, cash.Ingress, m.Tipo)
	assert.True(t, m.IsLinked())
	assert.Equal(t, "Cobro Cta. Cte.: Pago a cuenta", m.Concepto)
}

func TestCashPaymentWithoutSessionIsStillRecorded(t *testing.T) {
	svc, ctx, c := setup(t, true)

	res, err := svc.Receivable.RegisterPayment(ctx, receivable.PaymentInput{
		CustomerID: c.ID, Monto: decimal.NewFromInt(500), MetodoPago: types.PaymentCash, Concepto: "Saldo",
	})
	require.NoError(t, err)
	assert.Nil(t, res.CashMovementID)
	assert.True(t, res.SaldoActual.IsZero())
}

func TestNonCashPaymentLeavesDrawerAlone(t *testing.T) {
	svc, ctx, c := setup(t, true)
	_, err := svc.Cash.Open(ctx, decimal.Zero)
	require.NoError(t, err)

	res, err := svc.Receivable.RegisterPayment(ctx, receivable.PaymentInput{
		CustomerID: c.ID, Monto: decimal.NewFromInt(100), MetodoPago: types.PaymentTransfer,
	})
	require.NoError(t, err)
	assert.Nil(t, res.CashMovementID)

	view, err := svc.Cash.Current(ctx)
	require.NoError(t, err)
	assert.Empty(t, view.Movements)
}

func TestPaymentValidation(t *testing.T) {
	svc, ctx, c := setup(t, true)

	_, err := svc.Receivable.RegisterPayment(ctx, receivable.PaymentInput{CustomerID: c.ID, Monto: decimal.Zero})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.Receivable.RegisterPayment(ctx, receivable.PaymentInput{
		CustomerID: c.ID, Monto: decimal.NewFromInt(1), MetodoPago: types.PaymentAccount,
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.Receivable.RegisterPayment(ctx, receivable.PaymentInput{CustomerID: id.New(), Monto: decimal.NewFromInt(1)})
	assert.True(t, apperror.IsNotFound(err))
}

func TestPaymentSettlesBalanceAfterAccountIsDisabled(t *testing.T) {
	svc, ctx, c := setup(t, true)

	current, err := svc.Customers.Get(ctx, c.ID)
	require.NoError(t, err)
	current.CuentaCorriente = false
	require.NoError(t, svc.Customers.Update(ctx, current))

	res, err := svc.Receivable.RegisterPayment(ctx, receivable.PaymentInput{
		CustomerID: c.ID, Monto: decimal.NewFromInt(500), MetodoPago: types.PaymentTransfer,
	})
	require.NoError(t, err)
	assert.True(t, res.SaldoActual.IsZero(), "saldo %s", res.SaldoActual)

	require.NoError(t, svc.Customers.Delete(ctx, c.ID))
}

func TestPaymentRollsBackWhenCashFails(t *testing.T) {
	svc, ctx, c := setup(t, true)
	_, err := svc.Cash.Open(ctx, decimal.Zero)
	require.NoError(t, err)
	svc.Store.FailOn("cash.InsertMovement", assert.AnError)

	_, err = svc.Receivable.RegisterPayment(ctx, receivable.PaymentInput{CustomerID: c.ID, Monto: decimal.NewFromInt(100)})
	require.Error(t, err)

	st, err := svc.Receivable.Statement(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(st.Account.SaldoActual))
	assert.Len(t, st.Movements, 1)
}

func TestStatementBalanceMatchesMovements(t *testing.T) {
	svc, ctx, c := setup(t, true)
	for _, amount := range []int64{50, 25, 125} {
		_, err := svc.Receivable.RegisterPayment(ctx, receivable.PaymentInput{
			CustomerID: c.ID, Monto: decimal.NewFromInt(amount), MetodoPago: types.PaymentCard,
		})
		require.NoError(t, err)
	}

	st, err := svc.Receivable.Statement(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, st.Movements, 4)
	assert.Equal(t, receivable.Credit, st.Movements[0].Tipo, "newest first")

	sum := decimal.Zero
	for _, m := range st.Movements {
		sum = sum.Add(m.Tipo.Signed(m.Monto))
	}
	assert.True(t, sum.Equal(st.Account.SaldoActual))
	assert.True(t, decimal.NewFromInt(300).Equal(st.Account.SaldoActual))
}
