// Package product provides the product catalog: prices, tax rate and the
// stockActual projection maintained by the stock ledger.
package product

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"distripos/internal/core/apperror"
	"distripos/internal/core/entity"
	"distripos/internal/core/id"
)

const (
	DefaultStockMinimo int64 = 5
)

// DefaultTasaIva is the VAT rate applied when none is given.
var DefaultTasaIva = decimal.NewFromInt(21)

// Product is a sellable item of one tenant.
type Product struct {
	entity.TenantEntity

	// SKU is unique per tenant
	SKU    string `db:"sku" json:"sku"`
	Nombre string `db:"nombre" json:"nombre"`

	PrecioCompra decimal.Decimal `db:"precio_compra" json:"precioCompra"`
	PrecioVenta  decimal.Decimal `db:"precio_venta" json:"precioVenta"`

	// TasaIva is a percentage, e.g. 21 or 10.5
	TasaIva decimal.Decimal `db:"tasa_iva" json:"tasaIva"`

	// StockActual is written only through the stock ledger
	StockActual int64 `db:"stock_actual" json:"stockActual"`
	StockMinimo int64 `db:"stock_minimo" json:"stockMinimo"`

	MarcaID     *id.ID `db:"marca_id" json:"marcaId,omitempty"`
	ModeloID    *id.ID `db:"modelo_id" json:"modeloId,omitempty"`
	ProveedorID *id.ID `db:"proveedor_id" json:"proveedorId,omitempty"`
	CategoriaID *id.ID `db:"categoria_id" json:"categoriaId,omitempty"`

	entity.Timestamps
}

// NewProduct creates a product with default tax rate and minimum stock.
func NewProduct(tenantID id.ID, sku, nombre string) *Product {
	return &Product{
		TenantEntity: entity.NewTenantEntity(tenantID),
		SKU:          sku,
		Nombre:       nombre,
		PrecioCompra: decimal.Zero,
		PrecioVenta:  decimal.Zero,
		TasaIva:      DefaultTasaIva,
		StockMinimo:  DefaultStockMinimo,
	}
}

// Normalize trims text fields.
func (p *Product) Normalize() {
	p.SKU = strings.TrimSpace(p.SKU)
	p.Nombre = strings.TrimSpace(p.Nombre)
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(_ context.Context) error {
	if p.SKU == "" {
		return apperror.NewValidation("sku is required").
			WithDetail("field", "sku")
	}
	if len(p.SKU) > 64 {
		return apperror.NewValidation("sku is too long").
			WithDetail("field", "sku")
	}
	if p.Nombre == "" {
		return apperror.NewValidation("nombre is required").
			WithDetail("field", "nombre")
	}
	if p.PrecioCompra.IsNegative() {
		return apperror.NewValidation("precioCompra cannot be negative").
			WithDetail("field", "precioCompra")
	}
	if p.PrecioVenta.IsNegative() {
		return apperror.NewValidation("precioVenta cannot be negative").
			WithDetail("field", "precioVenta")
	}
	if p.TasaIva.IsNegative() || p.TasaIva.GreaterThan(decimal.NewFromInt(100)) {
		return apperror.NewValidation("tasaIva must be between 0 and 100").
			WithDetail("field", "tasaIva").
			WithDetail("value", p.TasaIva.String())
	}
	if p.StockActual < 0 {
		return apperror.NewValidation("stockActual cannot be negative").
			WithDetail("field", "stockActual")
	}
	if p.StockMinimo < 0 {
		return apperror.NewValidation("stockMinimo cannot be negative").
			WithDetail("field", "stockMinimo")
	}
	return nil
}

// IsLowStock reports stock at or below the configured minimum.
func (p *Product) IsLowStock() bool {
	return p.StockActual <= p.StockMinimo
}
