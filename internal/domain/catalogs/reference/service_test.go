package reference_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/catalogs/reference"
	"distripos/internal/infrastructure/storage/memory"
)

func TestResolveCreatesOnce(t *testing.T) {
	svc := memory.NewServices()
	tenantID := id.New()
	ctx := context.Background()

	first, err := svc.References.Resolve(ctx, tenantID, reference.KindBrand, "  Bosch  ")
	require.NoError(t, err)
	require.NotNil(t, first)

	again, err := svc.References.Resolve(ctx, tenantID, reference.KindBrand, "BOSCH")
	require.NoError(t, err)
	assert.Equal(t, *first, *again)

	otherKind, err := svc.References.Resolve(ctx, tenantID, reference.KindProvider, "Bosch")
	require.NoError(t, err)
	assert.NotEqual(t, *first, *otherKind)
}

func TestResolveBlankIsNil(t *testing.T) {
	svc := memory.NewServices()
	got, err := svc.References.Resolve(context.Background(), id.New(), reference.KindModel, "   ")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolveConcurrent(t *testing.T) {
	svc := memory.NewServices()
	tenantID := id.New()

	var wg sync.WaitGroup
	ids := make([]id.ID, 10)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.References.Resolve(context.Background(), tenantID, reference.KindCategory, "Filtros")
			if assert.NoError(t, err) && assert.NotNil(t, got) {
				ids[i] = *got
			}
		}()
	}
	wg.Wait()
	for _, got := range ids {
		assert.Equal(t, ids[0], got)
	}
}

func TestCategories(t *testing.T) {
	svc := memory.NewServices()
	tenantID := id.New()
	ctx := memory.As(context.Background(), tenantID, memory.Legacy(security.LegacyAdmin))

	cat, err := svc.References.CreateCategory(ctx, "Aceites")
	require.NoError(t, err)

	_, err = svc.References.CreateCategory(ctx, "aceites")
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	_, err = svc.References.CreateCategory(ctx, " ")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	p := product.NewProduct(tenantID, "AC-1", "Aceite 10w40")
	p.CategoriaID = &cat.ID
	require.NoError(t, svc.Products.Create(ctx, p))

	err = svc.References.DeleteCategory(ctx, cat.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	require.NoError(t, svc.Products.Delete(ctx, p.ID))
	require.NoError(t, svc.References.DeleteCategory(ctx, cat.ID))

	cats, err := svc.References.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)
}
