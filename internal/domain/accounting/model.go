// Package accounting records expenses and withholding/perception taxes and
// summarizes them per month.
package accounting

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/apperror"
	"distripos/internal/core/entity"
	"distripos/internal/core/tenant"
	"distripos/internal/core/types"
)

// TaxType distinguishes withholdings from perceptions.
type TaxType string

const (
	TaxRetention  TaxType = "RETENCION"
	TaxPerception TaxType = "PERCEPCION"
)

func (t TaxType) Valid() bool {
	return t == TaxRetention || t == TaxPerception
}

// TaxOperation tells whether the company suffered or applied the tax.
type TaxOperation string

const (
	TaxSuffered TaxOperation = "SUFRIDA"
	TaxApplied  TaxOperation = "PRACTICADA"
)

func (o TaxOperation) Valid() bool {
	return o == TaxSuffered || o == TaxApplied
}

// Expense is a manual expense such as rent or wages.
type Expense struct {
	entity.TenantEntity

	Categoria   string              `db:"categoria" json:"categoria"`
	Descripcion string              `db:"descripcion" json:"descripcion"`
	Monto       decimal.Decimal     `db:"monto" json:"monto"`
	MetodoPago  types.PaymentMethod `db:"metodo_pago" json:"metodoPago"`
	Comprobante *string             `db:"comprobante" json:"comprobante,omitempty"`
	Fecha       time.Time           `db:"fecha" json:"fecha"`
}

// TaxMovement is a withholding or perception certificate.
type TaxMovement struct {
	entity.TenantEntity

	Tipo       TaxType         `db:"tipo" json:"tipo"`
	Monto      decimal.Decimal `db:"monto" json:"monto"`
	Operacion  TaxOperation    `db:"operacion" json:"operacion"`
	Referencia *string         `db:"referencia" json:"referencia,omitempty"`
	Fecha      time.Time       `db:"fecha" json:"fecha"`
}

// ExpenseInput is the payload of RecordExpense.
type ExpenseInput struct {
	Categoria   string
	Descripcion string
	Monto       decimal.Decimal
	MetodoPago  types.PaymentMethod
	Comprobante *string
}

func (in *ExpenseInput) Validate() error {
	in.Categoria = strings.TrimSpace(in.Categoria)
	in.Descripcion = strings.TrimSpace(in.Descripcion)
	if in.Categoria == "" {
		return apperror.NewValidation("categoria is required").WithDetail("field", "categoria")
	}
	if in.Descripcion == "" {
		return apperror.NewValidation("descripcion is required").WithDetail("field", "descripcion")
	}
	if !in.Monto.IsPositive() {
		return apperror.NewValidation("monto must be positive").WithDetail("field", "monto")
	}
	if in.MetodoPago == "" {
		in.MetodoPago = types.PaymentCash
	}
	if !in.MetodoPago.Valid() {
		return apperror.NewValidation("invalid payment method").WithDetail("field", "metodoPago")
	}
	in.Comprobante = trimOptional(in.Comprobante)
	return nil
}

// TaxInput is the payload of RecordTaxMovement.
type TaxInput struct {
	Tipo       TaxType
	Monto      decimal.Decimal
	Operacion  TaxOperation
	Referencia *string
}

func (in *TaxInput) Validate() error {
	if !in.Tipo.Valid() {
		return apperror.NewValidation("tipo must be RETENCION or PERCEPCION").WithDetail("field", "tipo")
	}
	if !in.Operacion.Valid() {
		return apperror.NewValidation("operacion must be SUFRIDA or PRACTICADA").WithDetail("field", "operacion")
	}
	if !in.Monto.IsPositive() {
		return apperror.NewValidation("monto must be positive").WithDetail("field", "monto")
	}
	in.Referencia = trimOptional(in.Referencia)
	return nil
}

// MonthlySummary is the accounting view of one calendar month.
type MonthlySummary struct {
	Mes                 string                `json:"mes"`
	TotalFacturado      decimal.Decimal       `json:"totalFacturado"`
	TotalGastos         decimal.Decimal       `json:"totalGastos"`
	IIBBEstimado        decimal.Decimal       `json:"iibbEstimado"`
	MovimientosImpuesto []TaxMovement         `json:"movimientosImpuestos"`
	GastosRecientes     []Expense             `json:"gastosRecientes"`
	Config              *tenant.CompanyConfig `json:"config"`
}

// MonthRange returns [first day of month, first day of next month) in the
// location of month.
func MonthRange(month time.Time) (time.Time, time.Time) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	return start, start.AddDate(0, 1, 0)
}

// EstimateIIBB returns facturado × alicuota / 100.
func EstimateIIBB(facturado, alicuota decimal.Decimal) decimal.Decimal {
	return facturado.Mul(alicuota).Div(decimal.NewFromInt(100))
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
