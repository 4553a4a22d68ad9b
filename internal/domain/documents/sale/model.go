// Package sale registers and voids sales. Registration composes the stock,
// cash and receivable ledgers under one transaction.
package sale

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/apperror"
	"distripos/internal/core/entity"
	"distripos/internal/core/id"
	"distripos/internal/core/types"
)

// Status of a sale.
type Status string

const (
	StatusCompleted Status = "COMPLETADA"
	StatusVoided    Status = "ANULADA"
)

const maxIdempotencyKey = 128

// Sale is the header of a checkout.
type Sale struct {
	entity.TenantEntity

	Numero     string              `db:"numero" json:"numero"`
	Fecha      time.Time           `db:"fecha" json:"fecha"`
	Total      decimal.Decimal     `db:"total" json:"total"`
	MetodoPago types.PaymentMethod `db:"metodo_pago" json:"metodoPago"`
	Estado     Status              `db:"estado" json:"estado"`
	ClienteID  *id.ID              `db:"cliente_id" json:"clienteId,omitempty"`
	UsuarioID  id.ID               `db:"usuario_id" json:"usuarioId"`

	IdempotencyKey  *string    `db:"idempotency_key" json:"-"`
	MotivoAnulacion *string    `db:"motivo_anulacion" json:"motivoAnulacion,omitempty"`
	FechaAnulacion  *time.Time `db:"fecha_anulacion" json:"fechaAnulacion,omitempty"`

	Lines []Line `db:"-" json:"lines"`

	entity.Timestamps
}

// IsVoided reports estado ANULADA.
func (s *Sale) IsVoided() bool {
	return s.Estado == StatusVoided
}

// Line is one priced product of a sale. PrecioUnitario already includes tax
// and the customer's discount.
type Line struct {
	ID             id.ID           `db:"id" json:"id"`
	TenantID       id.ID           `db:"tenant_id" json:"-"`
	VentaID        id.ID           `db:"venta_id" json:"ventaId"`
	ProductoID     id.ID           `db:"producto_id" json:"productoId"`
	Cantidad       int64           `db:"cantidad" json:"cantidad"`
	PrecioUnitario decimal.Decimal `db:"precio_unitario" json:"precioUnitario"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`

	// ProductoNombre is filled on reads only
	ProductoNombre string `db:"producto_nombre" json:"productoNombre,omitempty"`
}

// LineItem is a requested product and quantity.
type LineItem struct {
	ProductID id.ID
	Quantity  int64
}

// Request is a checkout.
type Request struct {
	Items         []LineItem
	CustomerID    *id.ID
	PaymentMethod types.PaymentMethod

	// IdempotencyKey, when set, makes retries return the original sale
	IdempotencyKey string
}

// Validate implements entity.Validatable interface.
func (r *Request) Validate(_ context.Context) error {
	if len(r.Items) == 0 {
		return apperror.NewValidation("a sale needs at least one line").
			WithDetail("field", "items")
	}

	seen := make(map[id.ID]struct{}, len(r.Items))
	for i, item := range r.Items {
		if id.IsNil(item.ProductID) {
			return apperror.NewValidation("productId is required").
				WithDetail("field", "items").
				WithDetail("line", i)
		}
		if item.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "items").
				WithDetail("line", i)
		}
		if _, dup := seen[item.ProductID]; dup {
			return apperror.NewValidation("a product may appear only once per sale").
				WithDetail("field", "items").
				WithDetail("product_id", item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}

	if !r.PaymentMethod.Valid() {
		return apperror.NewValidation("invalid payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(r.PaymentMethod))
	}

	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	if len(r.IdempotencyKey) > maxIdempotencyKey {
		return apperror.NewValidation("idempotency key is too long").
			WithDetail("field", "idempotencyKey")
	}
	return nil
}

// ProductIDs returns the requested product ids in request order.
func (r *Request) ProductIDs() []id.ID {
	ids := make([]id.ID, len(r.Items))
	for i, item := range r.Items {
		ids[i] = item.ProductID
	}
	return ids
}

// VoidRequest cancels a sale.
type VoidRequest struct {
	SaleID id.ID
	Reason string
}

// ListFilter narrows sale listings.
type ListFilter struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
