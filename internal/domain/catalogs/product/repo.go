package product

import (
	"context"

	"distripos/internal/core/id"
	"distripos/internal/domain"
)

// ListFilter narrows product listings.
type ListFilter struct {
	domain.ListFilter

	// LowStockOnly keeps products with stockActual <= stockMinimo
	LowStockOnly bool
	CategoriaID  *id.ID
}

// Repository defines storage for products. Every method is tenant scoped;
// rows of other tenants behave as missing.
type Repository interface {
	// Create fails with a Duplicate error when the sku is taken.
	Create(ctx context.Context, p *Product) error

	// Update writes every column except stock_actual.
	Update(ctx context.Context, p *Product) error

	GetByID(ctx context.Context, tenantID, productID id.ID) (*Product, error)
	GetBySKU(ctx context.Context, tenantID id.ID, sku string) (*Product, error)

	// GetByIDs returns the products found; missing ids are simply absent.
	GetByIDs(ctx context.Context, tenantID id.ID, ids []id.ID) ([]*Product, error)

	// GetBySKUs returns the products found keyed by sku.
	GetBySKUs(ctx context.Context, tenantID id.ID, skus []string) (map[string]*Product, error)

	List(ctx context.Context, tenantID id.ID, filter ListFilter) (domain.ListResult[*Product], error)

	// HasSaleLines reports whether any sale line references the product.
	HasSaleLines(ctx context.Context, tenantID, productID id.ID) (bool, error)

	// Delete removes the product and its stock movements.
	Delete(ctx context.Context, tenantID, productID id.ID) error
}
