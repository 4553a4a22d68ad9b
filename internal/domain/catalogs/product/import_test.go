package product_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/catalogs/reference"
	"distripos/internal/domain/registers/stock"
)

func ptr[T any](v T) *T { return &v }

func TestBulkImportCreatesAndUpdates(t *testing.T) {
	svc, tenantID, ctx := setup(t)
	existing := newProduct(tenantID, "A1", 10)
	require.NoError(t, svc.Products.Create(ctx, existing))

	res, err := svc.Products.BulkImport(ctx, []product.ImportRow{
		{Row: 2, SKU: "A1", Nombre: "Actualizado", PrecioVenta: decimal.NewFromInt(120), Stock: ptr(int64(15))},
		{Row: 3, SKU: "B1", Nombre: "Nuevo", PrecioVenta: decimal.NewFromInt(80), Stock: ptr(int64(4)), Marca: "Acme", Categoria: " Repuestos "},
		{Row: 4, SKU: "", Nombre: "Sin sku"},
		{Row: 5, SKU: "C1", Nombre: "Precio negativo", PrecioVenta: decimal.NewFromInt(-1)},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, 4, res.Failed[0].Row)
	assert.Equal(t, 5, res.Failed[1].Row)

	got, err := svc.Products.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Actualizado", got.Nombre)
	assert.Equal(t, int64(15), got.StockActual)
	moves := svc.Store.StockMovements(tenantID, existing.ID)
	assert.Equal(t, stock.TypeManual, moves[len(moves)-1].Tipo)
	assert.Equal(t, int64(5), moves[len(moves)-1].Cantidad)

	cats, err := svc.References.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Repuestos", cats[0].Nombre)

	brand, err := svc.References.Resolve(ctx, tenantID, reference.KindBrand, "acme")
	require.NoError(t, err)
	list, err := svc.Products.List(ctx, product.ListFilter{})
	require.NoError(t, err)
	for _, p := range list.Items {
		if p.SKU == "B1" {
			require.NotNil(t, p.MarcaID)
			assert.Equal(t, *brand, *p.MarcaID, "names resolve case-insensitively")
		}
	}
}

func TestBulkImportRepeatedSKUUpdatesWithinChunk(t *testing.T) {
	svc, tenantID, ctx := setup(t)

	res, err := svc.Products.BulkImport(ctx, []product.ImportRow{
		{Row: 2, SKU: "A1", Nombre: "Primero", Stock: ptr(int64(3))},
		{Row: 3, SKU: "A1", Nombre: "Segundo", Stock: ptr(int64(8))},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)

	list, err := svc.Products.List(ctx, product.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Segundo", list.Items[0].Nombre)
	assertConserved(t, svc, ctx, tenantID, list.Items[0].ID)
}

func TestBulkImportFailedChunkIsReported(t *testing.T) {
	svc, _, ctx := setup(t)
	svc.Store.FailOn("stock.InsertMovements", errors.New("connection reset"))

	res, err := svc.Products.BulkImport(ctx, []product.ImportRow{
		{Row: 2, SKU: "A1", Nombre: "Uno", Stock: ptr(int64(3))},
		{Row: 3, SKU: "A2", Nombre: "Dos"},
	})
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Len(t, res.Failed, 2)

	list, err := svc.Products.List(ctx, product.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list.Items, "the chunk rolled back")
}
