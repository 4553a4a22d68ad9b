package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/id"
	"distripos/internal/core/types"
	"distripos/internal/domain/documents/sale"
	"distripos/internal/domain/registers/cash"
	"distripos/internal/domain/registers/receivable"
)

// --- Sales ---

// SaleItemRequest is one requested line.
type SaleItemRequest struct {
	ProductoID string `json:"productoId" binding:"required,uuid"`
	Cantidad   int64  `json:"cantidad" binding:"required,min=1"`
}

// CreateSaleRequest is the checkout body.
type CreateSaleRequest struct {
	Items      []SaleItemRequest   `json:"items" binding:"required,min=1,dive"`
	ClienteID  *string             `json:"clienteId" binding:"omitempty,uuid"`
	MetodoPago types.PaymentMethod `json:"metodoPago" binding:"required,oneof=EFECTIVO TARJETA TRANSFERENCIA CUENTA_CORRIENTE"`
}

// ToRequest converts to the orchestrator request. Binding already checked
// the uuid format.
func (r *CreateSaleRequest) ToRequest(idempotencyKey string) (sale.Request, error) {
	req := sale.Request{
		Items:          make([]sale.LineItem, 0, len(r.Items)),
		PaymentMethod:  r.MetodoPago,
		IdempotencyKey: idempotencyKey,
	}
	for _, item := range r.Items {
		req.Items = append(req.Items, sale.LineItem{
			ProductID: id.MustParse(item.ProductoID),
			Quantity:  item.Cantidad,
		})
	}
	customerID, err := ParseOptionalID("clienteId", r.ClienteID)
	if err != nil {
		return req, err
	}
	req.CustomerID = customerID
	return req, nil
}

// VoidSaleRequest is the body of POST /sales/:id/void.
type VoidSaleRequest struct {
	Motivo string `json:"motivo" binding:"max=500"`
}

// SaleListQuery filters GET /sales.
type SaleListQuery struct {
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
	Limit  int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int        `form:"offset" binding:"omitempty,min=0"`
}

func (q SaleListQuery) ToFilter() sale.ListFilter {
	f := sale.ListFilter{From: q.From, Limit: q.Limit, Offset: q.Offset}
	if q.To != nil {
		// A date "to" includes the whole day.
		end := q.To.AddDate(0, 0, 1)
		f.To = &end
	}
	return f
}

// --- Cash ---

// OpenCashRequest is the body of POST /cash/open.
type OpenCashRequest struct {
	MontoApertura decimal.Decimal `json:"montoApertura"`
}

// CloseCashRequest is the body of POST /cash/:id/close.
type CloseCashRequest struct {
	MontoContado decimal.Decimal `json:"montoContado"`
}

// CashMovementRequest is the body of POST /cash/:id/movements.
type CashMovementRequest struct {
	Tipo       cash.MovementType `json:"tipo" binding:"required,oneof=INGRESO EGRESO"`
	Monto      decimal.Decimal   `json:"monto"`
	Concepto   string            `json:"concepto" binding:"required,max=255"`
	Referencia *string           `json:"referencia" binding:"omitempty,max=255"`
}

func (r *CashMovementRequest) ToInput(sessionID id.ID) cash.MovementInput {
	return cash.MovementInput{
		SessionID:  sessionID,
		Tipo:       r.Tipo,
		Monto:      r.Monto,
		Concepto:   r.Concepto,
		Referencia: r.Referencia,
	}
}

// --- Receivables ---

// PaymentRequest is the body of POST /customers/:id/payments.
type PaymentRequest struct {
	Monto      decimal.Decimal     `json:"monto"`
	MetodoPago types.PaymentMethod `json:"metodoPago" binding:"required,oneof=EFECTIVO TARJETA TRANSFERENCIA"`
	Concepto   string              `json:"concepto" binding:"max=255"`
}

func (r *PaymentRequest) ToInput(customerID id.ID) receivable.PaymentInput {
	return receivable.PaymentInput{
		CustomerID: customerID,
		Monto:      r.Monto,
		MetodoPago: r.MetodoPago,
		Concepto:   r.Concepto,
	}
}
