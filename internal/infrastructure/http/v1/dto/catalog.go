package dto

import (
	"github.com/shopspring/decimal"

	"distripos/internal/core/id"
	"distripos/internal/domain"
	"distripos/internal/domain/catalogs/customer"
	"distripos/internal/domain/catalogs/product"
)

// --- Products ---

// ProductRequest is the body for creating and updating a product. On update
// a missing field keeps its stored value.
type ProductRequest struct {
	SKU          *string          `json:"sku" binding:"omitempty,max=64"`
	Nombre       *string          `json:"nombre" binding:"omitempty,max=255"`
	PrecioCompra *decimal.Decimal `json:"precioCompra"`
	PrecioVenta  *decimal.Decimal `json:"precioVenta"`
	TasaIva      *decimal.Decimal `json:"tasaIva"`
	StockActual  *int64           `json:"stockActual" binding:"omitempty,min=0"`
	StockMinimo  *int64           `json:"stockMinimo" binding:"omitempty,min=0"`
	MarcaID      *string          `json:"marcaId"`
	ModeloID     *string          `json:"modeloId"`
	ProveedorID  *string          `json:"proveedorId"`
	CategoriaID  *string          `json:"categoriaId"`
}

// ToEntity converts DTO to a new product of tenantID.
func (r *ProductRequest) ToEntity(tenantID id.ID) (*product.Product, error) {
	p := product.NewProduct(tenantID, deref(r.SKU), deref(r.Nombre))
	if err := r.ApplyTo(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyTo applies the present fields to p.
func (r *ProductRequest) ApplyTo(p *product.Product) error {
	if r.SKU != nil {
		p.SKU = *r.SKU
	}
	if r.Nombre != nil {
		p.Nombre = *r.Nombre
	}
	if r.PrecioCompra != nil {
		p.PrecioCompra = *r.PrecioCompra
	}
	if r.PrecioVenta != nil {
		p.PrecioVenta = *r.PrecioVenta
	}
	if r.TasaIva != nil {
		p.TasaIva = *r.TasaIva
	}
	if r.StockActual != nil {
		p.StockActual = *r.StockActual
	}
	if r.StockMinimo != nil {
		p.StockMinimo = *r.StockMinimo
	}

	refs := []struct {
		field string
		raw   *string
		dst   **id.ID
	}{
		{"marcaId", r.MarcaID, &p.MarcaID},
		{"modeloId", r.ModeloID, &p.ModeloID},
		{"proveedorId", r.ProveedorID, &p.ProveedorID},
		{"categoriaId", r.CategoriaID, &p.CategoriaID},
	}
	for _, ref := range refs {
		if ref.raw == nil {
			continue
		}
		v, err := ParseOptionalID(ref.field, ref.raw)
		if err != nil {
			return err
		}
		*ref.dst = v
	}
	return nil
}

// ProductListQuery filters the product list.
type ProductListQuery struct {
	ListQuery
	LowStock    bool   `form:"lowStock"`
	CategoriaID string `form:"categoriaId" binding:"omitempty,uuid"`
}

func (q ProductListQuery) ToFilter() product.ListFilter {
	f := product.ListFilter{ListFilter: q.ListQuery.ToFilter(), LowStockOnly: q.LowStock}
	if q.CategoriaID != "" {
		v := id.MustParse(q.CategoriaID)
		f.CategoriaID = &v
	}
	return f
}

// AdjustStockRequest is the body of POST /products/:id/adjust.
type AdjustStockRequest struct {
	Delta int64  `json:"delta" binding:"required"`
	Notas string `json:"notas" binding:"max=500"`
}

// ImportResponse merges rows rejected by the reader with the service result.
type ImportResponse struct {
	*product.ImportResult
	Rows int `json:"rows"`
}

// --- Categories ---

// CategoryRequest is the body of POST /categories.
type CategoryRequest struct {
	Nombre string `json:"nombre" binding:"required,max=120"`
}

// --- Customers ---

// CustomerRequest is the body for creating and updating a customer.
type CustomerRequest struct {
	Nombre            string           `json:"nombre" binding:"required,max=255"`
	CUIT              *string          `json:"cuit" binding:"omitempty,max=20"`
	Email             *string          `json:"email" binding:"omitempty,max=255"`
	Telefono          *string          `json:"telefono" binding:"omitempty,max=50"`
	Direccion         *string          `json:"direccion" binding:"omitempty,max=255"`
	CuentaCorriente   bool             `json:"cuentaCorriente"`
	LimiteCredito     *decimal.Decimal `json:"limiteCredito"`
	DescuentoEspecial *decimal.Decimal `json:"descuentoEspecial"`
}

// ToEntity converts DTO to a new customer of tenantID.
func (r *CustomerRequest) ToEntity(tenantID id.ID) *customer.Customer {
	c := customer.NewCustomer(tenantID, r.Nombre)
	r.ApplyTo(c)
	return c
}

// ApplyTo overwrites the editable fields. The balance is never touched.
func (r *CustomerRequest) ApplyTo(c *customer.Customer) {
	c.Nombre = r.Nombre
	c.CUIT = r.CUIT
	c.Email = r.Email
	c.Telefono = r.Telefono
	c.Direccion = r.Direccion
	c.CuentaCorriente = r.CuentaCorriente
	c.LimiteCredito = r.LimiteCredito
	c.DescuentoEspecial = decimal.Zero
	if r.DescuentoEspecial != nil {
		c.DescuentoEspecial = *r.DescuentoEspecial
	}
}

// CustomerListResponse is a page of customers.
type CustomerListResponse = domain.ListResult[*customer.Customer]

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
