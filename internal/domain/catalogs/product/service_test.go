package product_test

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
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/documents/sale"
	"distripos/internal/domain/registers/stock"
	"distripos/internal/infrastructure/storage/memory"
)

func setup(t *testing.T) (*memory.Services, id.ID, context.Context) {
	t.Helper()
	svc := memory.NewServices()
	tenantID := id.New()
	return svc, tenantID, memory.As(context.Background(), tenantID, memory.Legacy(security.LegacyAdmin))
}

func newProduct(tenantID id.ID, sku string, qty int64) *product.Product {
	p := product.NewProduct(tenantID, sku, "Producto "+sku)
	p.PrecioVenta = decimal.NewFromInt(100)
	p.StockActual = qty
	return p
}

// sum of the movements must equal stockActual
func assertConserved(t *testing.T, svc *memory.Services, ctx context.Context, tenantID, productID id.ID) {
	t.Helper()
	p, err := svc.Products.Get(ctx, productID)
	require.NoError(t, err)
	var sum int64
	for _, m := range svc.Store.StockMovements(tenantID, productID) {
		sum += m.Cantidad
	}
	assert.Equal(t, p.StockActual, sum)
}

func TestCreateBooksOpeningMovement(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	p := newProduct(tenantID, "A1", 12)
	require.NoError(t, svc.Products.Create(ctx, p))

	moves, err := svc.Products.Movements(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, stock.TypeOpening, moves[0].Tipo)
	assert.Equal(t, int64(12), moves[0].Cantidad)
	assertConserved(t, svc, ctx, tenantID, p.ID)

	got, err := svc.Products.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(21).Equal(got.TasaIva))
	assert.Equal(t, int64(5), got.StockMinimo)
}

func TestCreateWithoutStockHasNoMovement(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	p := newProduct(tenantID, "A1", 0)
	require.NoError(t, svc.Products.Create(ctx, p))
	assert.Empty(t, svc.Store.StockMovements(tenantID, p.ID))
}

func TestCreateDuplicateSKU(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	require.NoError(t, svc.Products.Create(ctx, newProduct(tenantID, "A1", 0)))

	err := svc.Products.Create(ctx, newProduct(tenantID, "A1", 0))
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	other := id.New()
	otherCtx := memory.As(context.Background(), other, memory.Legacy(security.LegacyAdmin))
	assert.NoError(t, svc.Products.Create(otherCtx, newProduct(other, "A1", 0)), "sku is unique per tenant")
}

func TestCreateValidation(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	tests := []struct {
		name   string
		mutate func(p *product.Product)
	}{
		{"blank sku", func(p *product.Product) { p.SKU = "  " }},
		{"blank nombre", func(p *product.Product) { p.Nombre = "" }},
		{"negative price", func(p *product.Product) { p.PrecioVenta = decimal.NewFromInt(-1) }},
		{"tax over 100", func(p *product.Product) { p.TasaIva = decimal.NewFromInt(101) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProduct(tenantID, "V1", 0)
			tt.mutate(p)
			err := svc.Products.Create(ctx, p)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestUpdateBooksStockDifference(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	p := newProduct(tenantID, "A1", 10)
	require.NoError(t, svc.Products.Create(ctx, p))

	next := *p
	next.StockActual = 7
	next.PrecioVenta = decimal.NewFromInt(150)
	require.NoError(t, svc.Products.Update(ctx, &next))

	got, err := svc.Products.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.StockActual)
	assert.True(t, decimal.NewFromInt(150).Equal(got.PrecioVenta))

	moves := svc.Store.StockMovements(tenantID, p.ID)
	require.Len(t, moves, 2)
	assert.Equal(t, stock.TypeManual, moves[1].Tipo)
	assert.Equal(t, int64(-3), moves[1].Cantidad)
	assertConserved(t, svc, ctx, tenantID, p.ID)
}

func TestUpdateWithoutStockChangeAddsNoMovement(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	p := newProduct(tenantID, "A1", 10)
	require.NoError(t, svc.Products.Create(ctx, p))

	next := *p
	next.Nombre = "Renombrado"
	require.NoError(t, svc.Products.Update(ctx, &next))
	assert.Len(t, svc.Store.StockMovements(tenantID, p.ID), 1)
}

func TestAdjustStock(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	p := newProduct(tenantID, "A1", 4)
	require.NoError(t, svc.Products.Create(ctx, p))

	got, err := svc.Products.AdjustStock(ctx, p.ID, 6, "Recuento")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.StockActual)

	_, err = svc.Products.AdjustStock(ctx, p.ID, -11, "Rotura")
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	_, err = svc.Products.AdjustStock(ctx, p.ID, 0, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	assertConserved(t, svc, ctx, tenantID, p.ID)
}

func TestDeleteReferencedBySale(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	p := newProduct(tenantID, "A1", 4)
	require.NoError(t, svc.Products.Create(ctx, p))
	_, err := svc.Sales.Register(ctx, sale.Request{
		Items:         []sale.LineItem{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: types.PaymentTransfer,
	})
	require.NoError(t, err)

	err = svc.Products.Delete(ctx, p.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
}

func TestDelete(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	p := newProduct(tenantID, "A1", 4)
	require.NoError(t, svc.Products.Create(ctx, p))

	require.NoError(t, svc.Products.Delete(ctx, p.ID))
	_, err := svc.Products.Get(ctx, p.ID)
	assert.True(t, apperror.IsNotFound(err))
	assert.Empty(t, svc.Store.StockMovements(tenantID, p.ID))
}

func TestListLowStock(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	require.NoError(t, svc.Products.Create(ctx, newProduct(tenantID, "A1", 2)))
	require.NoError(t, svc.Products.Create(ctx, newProduct(tenantID, "A2", 50)))

	res, err := svc.Products.List(ctx, product.ListFilter{LowStockOnly: true})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "A1", res.Items[0].SKU)
	assert.Equal(t, int64(1), res.TotalCount)
}

func TestSellerCannotEditCatalog(t *testing.T) {
	svc, tenantID, _ := setup(t)
	seller := memory.As(context.Background(), tenantID, memory.Legacy(security.LegacyVendedor))

	err := svc.Products.Create(seller, newProduct(tenantID, "A1", 1))
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	_, err = svc.Products.List(seller, product.ListFilter{})
	assert.NoError(t, err)
}
