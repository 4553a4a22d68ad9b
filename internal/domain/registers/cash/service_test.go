package cash_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/core/types"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/documents/sale"
	"distripos/internal/domain/registers/cash"
	"distripos/internal/infrastructure/storage/memory"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(t *testing.T) (*memory.Services, id.ID, context.Context) {
	t.Helper()
	svc := memory.NewServices()
	tenantID := id.New()
	return svc, tenantID, memory.As(context.Background(), tenantID, memory.Legacy(security.LegacyAdmin))
}

func TestCloseComputesDiscrepancy(t *testing.T) {
	svc, _, ctx := setup(t)

	session, err := svc.Cash.Open(ctx, money("1000"))
	require.NoError(t, err)
	_, err = svc.Cash.RecordMovement(ctx, cash.MovementInput{
		SessionID: session.ID, Tipo: cash.Ingress, Monto: money("500"), Concepto: "Cambio",
	})
	require.NoError(t, err)
	_, err = svc.Cash.RecordMovement(ctx, cash.MovementInput{
		SessionID: session.ID, Tipo: cash.Egress, Monto: money("200"), Concepto: "Flete",
	})
	require.NoError(t, err)

	res, err := svc.Cash.Close(ctx, session.ID, money("1250"))
	require.NoError(t, err)
	assert.True(t, money("1300").Equal(res.Expected))
	assert.True(t, money("-50").Equal(res.Discrepancy))
	assert.Equal(t, cash.DeviationWarning, res.Deviation)

	history, err := svc.Cash.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	closed := history[0]
	assert.Equal(t, cash.StatusClosed, closed.Estado)
	require.NotNil(t, closed.Diferencia)
	assert.True(t, money("-50").Equal(*closed.Diferencia))
	require.NotNil(t, closed.MontoEsperado)
	assert.True(t, money("1300").Equal(*closed.MontoEsperado))
	assert.NotNil(t, closed.FechaCierre)

	last, err := svc.Cash.LastClose(ctx)
	require.NoError(t, err)
	assert.True(t, money("1250").Equal(last))

	current, err := svc.Cash.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestCloseTwiceConflicts(t *testing.T) {
	svc, _, ctx := setup(t)
	session, err := svc.Cash.Open(ctx, money("0"))
	require.NoError(t, err)

	_, err = svc.Cash.Close(ctx, session.ID, money("0"))
	require.NoError(t, err)
	_, err = svc.Cash.Close(ctx, session.ID, money("0"))
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
}

func TestOpenWhileOpen(t *testing.T) {
	svc, _, ctx := setup(t)
	first, err := svc.Cash.Open(ctx, money("100"))
	require.NoError(t, err)

	_, err = svc.Cash.Open(ctx, money("100"))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyOpen))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, first.ID, appErr.Details["session_id"])
}

func TestOpenIsPerTenant(t *testing.T) {
	svc, _, ctx := setup(t)
	_, err := svc.Cash.Open(ctx, money("0"))
	require.NoError(t, err)

	other := memory.As(context.Background(), id.New(), memory.Legacy(security.LegacyAdmin))
	_, err = svc.Cash.Open(other, money("0"))
	assert.NoError(t, err)
}

func TestConcurrentOpensLeaveOneSession(t *testing.T) {
	svc, _, ctx := setup(t)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Cash.Open(ctx, money("0"))
			if err == nil {
				mu.Lock()
				opened++
				mu.Unlock()
				return
			}
			assert.True(t,
				apperror.HasCode(err, apperror.CodeAlreadyOpen) || apperror.HasCode(err, apperror.CodeConflict),
				"got %v", err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, opened)
}

func TestOpenRejectsNegativeFloat(t *testing.T) {
	svc, _, ctx := setup(t)
	_, err := svc.Cash.Open(ctx, money("-1"))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRecordMovementValidation(t *testing.T) {
	svc, _, ctx := setup(t)
	session, err := svc.Cash.Open(ctx, money("0"))
	require.NoError(t, err)

	tests := []struct {
		name string
		in   cash.MovementInput
	}{
		{"zero amount", cash.MovementInput{SessionID: session.ID, Tipo: cash.Ingress, Monto: money("0"), Concepto: "x"}},
		{"negative amount", cash.MovementInput{SessionID: session.ID, Tipo: cash.Ingress, Monto: money("-3"), Concepto: "x"}},
		{"bad type", cash.MovementInput{SessionID: session.ID, Tipo: "OTRO", Monto: money("3"), Concepto: "x"}},
		{"empty concept", cash.MovementInput{SessionID: session.ID, Tipo: cash.Egress, Monto: money("3"), Concepto: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Cash.RecordMovement(ctx, tt.in)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestRecordMovementOnClosedSession(t *testing.T) {
	svc, _, ctx := setup(t)
	session, err := svc.Cash.Open(ctx, money("0"))
	require.NoError(t, err)
	_, err = svc.Cash.Close(ctx, session.ID, money("0"))
	require.NoError(t, err)

	_, err = svc.Cash.RecordMovement(ctx, cash.MovementInput{
		SessionID: session.ID, Tipo: cash.Ingress, Monto: money("10"), Concepto: "tarde",
	})
	assert.True(t, apperror.IsNotFound(err))
}

func TestDeleteManualMovementPostsReversal(t *testing.T) {
	svc, _, ctx := setup(t)
	session, err := svc.Cash.Open(ctx, money("100"))
	require.NoError(t, err)
	m, err := svc.Cash.RecordMovement(ctx, cash.MovementInput{
		SessionID: session.ID, Tipo: cash.Egress, Monto: money("30"), Concepto: "Insumos",
	})
	require.NoError(t, err)

	reversal, err := svc.Cash.DeleteMovement(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, cash.Ingress, reversal.Tipo)
	require.NotNil(t, reversal.ReversaDe)
	assert.Equal(t, m.ID, *reversal.ReversaDe)

	view, err := svc.Cash.Current(ctx)
	require.NoError(t, err)
	require.Len(t, view.Movements, 2)
	assert.True(t, view.Movements[0].Anulado)
	assert.True(t, money("100").Equal(view.Balance))

	_, err = svc.Cash.DeleteMovement(ctx, m.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict), "already reversed")

	_, err = svc.Cash.DeleteMovement(ctx, reversal.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict), "reversal of a reversal")
}

func TestDeleteLinkedMovementRefused(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	_, err := svc.Cash.Open(ctx, money("0"))
	require.NoError(t, err)

	p := product.NewProduct(tenantID, "A1", "Articulo")
	p.PrecioVenta = money("10")
	p.StockActual = 3
	require.NoError(t, svc.Products.Create(ctx, p))
	_, err = svc.Sales.Register(ctx, sale.Request{
		Items:         []sale.LineItem{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: types.PaymentCash,
	})
	require.NoError(t, err)

	view, err := svc.Cash.Current(ctx)
	require.NoError(t, err)
	require.Len(t, view.Movements, 1)

	_, err = svc.Cash.DeleteMovement(ctx, view.Movements[0].ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeLinkedMovement))
}

func TestDeleteMovementOfClosedSession(t *testing.T) {
	svc, _, ctx := setup(t)
	session, err := svc.Cash.Open(ctx, money("0"))
	require.NoError(t, err)
	m, err := svc.Cash.RecordMovement(ctx, cash.MovementInput{
		SessionID: session.ID, Tipo: cash.Ingress, Monto: money("5"), Concepto: "x",
	})
	require.NoError(t, err)
	_, err = svc.Cash.Close(ctx, session.ID, money("5"))
	require.NoError(t, err)

	_, err = svc.Cash.DeleteMovement(ctx, m.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
}

func TestCashRequiresPermission(t *testing.T) {
	svc, tenantID, _ := setup(t)
	viewer := memory.As(context.Background(), tenantID, memory.Dynamic("Lectura", security.CashView))

	_, err := svc.Cash.Open(viewer, money("0"))
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	current, err := svc.Cash.Current(viewer)
	assert.NoError(t, err)
	assert.Nil(t, current)
}
