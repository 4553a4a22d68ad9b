package stock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/registers/stock"
	"distripos/internal/infrastructure/storage/memory"
)

func TestPostMixedLines(t *testing.T) {
	svc := memory.NewServices()
	tenantID := id.New()
	ctx := memory.As(context.Background(), tenantID, memory.Legacy(security.LegacyAdmin))

	a := product.NewProduct(tenantID, "A", "Alfa")
	a.StockActual = 5
	b := product.NewProduct(tenantID, "B", "Beta")
	require.NoError(t, svc.Products.Create(ctx, a))
	require.NoError(t, svc.Products.Create(ctx, b))

	ref := "doc-1"
	moves, err := svc.Ledger.Post(ctx, stock.Posting{
		TenantID:   tenantID,
		Tipo:       stock.TypeManual,
		Referencia: &ref,
		Lines: []stock.Line{
			{ProductID: a.ID, Delta: -2},
			{ProductID: b.ID, Delta: 4},
			{ProductID: b.ID, Delta: 0},
		},
	})
	require.NoError(t, err)
	assert.Len(t, moves, 2, "zero lines are skipped")

	qa, err := svc.Ledger.CurrentStock(ctx, tenantID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), qa)
	qb, err := svc.Ledger.CurrentStock(ctx, tenantID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), qb)
}

func TestPostNeverGoesNegative(t *testing.T) {
	svc := memory.NewServices()
	tenantID := id.New()
	ctx := memory.As(context.Background(), tenantID, memory.Legacy(security.LegacyAdmin))
	a := product.NewProduct(tenantID, "A", "Alfa")
	a.StockActual = 1
	require.NoError(t, svc.Products.Create(ctx, a))

	_, err := svc.Ledger.Post(ctx, stock.Posting{
		TenantID: tenantID,
		Tipo:     stock.TypeSale,
		Lines:    []stock.Line{{ProductID: a.ID, Delta: -2}},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, int64(1), appErr.Details["available"])

	_, err = svc.Ledger.Post(ctx, stock.Posting{
		TenantID: tenantID,
		Tipo:     stock.TypeSale,
		Lines:    []stock.Line{{ProductID: id.New(), Delta: 3}},
	})
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.Ledger.Post(ctx, stock.Posting{Lines: []stock.Line{{ProductID: a.ID, Delta: 1}}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
