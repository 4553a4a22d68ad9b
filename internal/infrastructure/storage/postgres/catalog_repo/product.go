package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/domain"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/infrastructure/storage/postgres"
)

const (
	productTable        = "productos"
	productSKUUnique    = "productos_tenant_sku_key"
	stockMovementsTable = "movimientos_stock"
	saleLinesTable      = "detalle_ventas"
)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[product.Product]
}

var _ product.Repository = (*ProductRepo)(nil)

func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[product.Product](txManager, productTable, "product", "sku", "nombre"),
	}
}

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	if err := r.insert(ctx, p); err != nil {
		if postgres.IsUniqueViolation(err, productSKUUnique) {
			return apperror.NewDuplicate("product", "sku", p.SKU)
		}
		return err
	}
	return nil
}

// Update writes every column except stock_actual, which belongs to the stock ledger.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	if err := r.update(ctx, p.TenantID, p.ID, p, "stock_actual"); err != nil {
		if postgres.IsUniqueViolation(err, productSKUUnique) {
			return apperror.NewDuplicate("product", "sku", p.SKU)
		}
		return err
	}
	return nil
}

func (r *ProductRepo) GetBySKU(ctx context.Context, tenantID id.ID, sku string) (*product.Product, error) {
	var p product.Product
	q := r.baseSelect(tenantID).
		Where(squirrel.Eq{"sku": sku}).
		Limit(1)

	if err := postgres.Get(ctx, r.querier(ctx), &p, q, "product", sku); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) GetBySKUs(ctx context.Context, tenantID id.ID, skus []string) (map[string]*product.Product, error) {
	out := make(map[string]*product.Product, len(skus))
	if len(skus) == 0 {
		return out, nil
	}

	var items []*product.Product
	q := r.baseSelect(tenantID).Where(squirrel.Eq{"sku": skus})
	if err := postgres.Select(ctx, r.querier(ctx), &items, q); err != nil {
		return nil, fmt.Errorf("get products by sku: %w", err)
	}
	for _, p := range items {
		out[p.SKU] = p
	}
	return out, nil
}

func (r *ProductRepo) List(ctx context.Context, tenantID id.ID, filter product.ListFilter) (domain.ListResult[*product.Product], error) {
	var where []squirrel.Sqlizer
	if filter.LowStockOnly {
		where = append(where, squirrel.Expr("stock_actual <= stock_minimo"))
	}
	if filter.CategoriaID != nil {
		where = append(where, squirrel.Eq{"categoria_id": *filter.CategoriaID})
	}
	return r.list(ctx, tenantID, filter.ListFilter, "nombre ASC, id ASC", where...)
}

func (r *ProductRepo) HasSaleLines(ctx context.Context, tenantID, productID id.ID) (bool, error) {
	q := r.Builder().
		Select("1").
		From(saleLinesTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "producto_id": productID}).
		Limit(1)
	return postgres.Exists(ctx, r.querier(ctx), q)
}

// Delete removes the product and its stock movements in one statement pair;
// callers run it inside a transaction.
func (r *ProductRepo) Delete(ctx context.Context, tenantID, productID id.ID) error {
	q := r.Builder().
		Delete(stockMovementsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "producto_id": productID})
	if _, err := postgres.Exec(ctx, r.querier(ctx), q); err != nil {
		return fmt.Errorf("delete stock movements: %w", err)
	}
	return r.BaseCatalogRepo.Delete(ctx, tenantID, productID)
}
