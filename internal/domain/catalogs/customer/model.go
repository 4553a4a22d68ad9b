// Package customer provides the customer catalog. The running balance
// (saldoActual) is owned by the receivable ledger and read here only.
package customer

import (
	"context"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"distripos/internal/core/apperror"
	"distripos/internal/core/entity"
	"distripos/internal/core/id"
)

// Customer is a buyer with an optional running account.
type Customer struct {
	entity.TenantEntity

	Nombre    string  `db:"nombre" json:"nombre"`
	CUIT      *string `db:"cuit" json:"cuit,omitempty"`
	Email     *string `db:"email" json:"email,omitempty"`
	Telefono  *string `db:"telefono" json:"telefono,omitempty"`
	Direccion *string `db:"direccion" json:"direccion,omitempty"`

	// CuentaCorriente enables CUENTA_CORRIENTE sales and payments
	CuentaCorriente bool `db:"cuenta_corriente" json:"cuentaCorriente"`

	// SaldoActual is debit-positive: what the customer owes
	SaldoActual decimal.Decimal `db:"saldo_actual" json:"saldoActual"`

	// LimiteCredito caps SaldoActual for account sales when set
	LimiteCredito *decimal.Decimal `db:"limite_credito" json:"limiteCredito,omitempty"`

	// DescuentoEspecial is a percentage applied to every sale line
	DescuentoEspecial decimal.Decimal `db:"descuento_especial" json:"descuentoEspecial"`

	entity.Timestamps
}

// NewCustomer creates a customer without account or discount.
func NewCustomer(tenantID id.ID, nombre string) *Customer {
	return &Customer{
		TenantEntity:      entity.NewTenantEntity(tenantID),
		Nombre:            nombre,
		SaldoActual:       decimal.Zero,
		DescuentoEspecial: decimal.Zero,
	}
}

// Normalize trims text and turns blank optional fields into nil.
func (c *Customer) Normalize() {
	c.Nombre = strings.TrimSpace(c.Nombre)
	c.CUIT = blankToNil(c.CUIT)
	c.Email = blankToNil(c.Email)
	c.Telefono = blankToNil(c.Telefono)
	c.Direccion = blankToNil(c.Direccion)
}

// Validate implements entity.Validatable interface.
func (c *Customer) Validate(_ context.Context) error {
	if c.Nombre == "" {
		return apperror.NewValidation("nombre is required").
			WithDetail("field", "nombre")
	}
	if c.Email != nil {
		if _, err := mail.ParseAddress(*c.Email); err != nil {
			return apperror.NewValidation("invalid email").
				WithDetail("field", "email")
		}
	}
	if c.DescuentoEspecial.IsNegative() || c.DescuentoEspecial.GreaterThan(decimal.NewFromInt(100)) {
		return apperror.NewValidation("descuentoEspecial must be between 0 and 100").
			WithDetail("field", "descuentoEspecial")
	}
	if c.LimiteCredito != nil && c.LimiteCredito.IsNegative() {
		return apperror.NewValidation("limiteCredito cannot be negative").
			WithDetail("field", "limiteCredito")
	}
	return nil
}

// HasDiscount reports a positive special discount.
func (c *Customer) HasDiscount() bool {
	return c.DescuentoEspecial.IsPositive()
}

// ExceedsCredit reports whether charging amount would pass the credit limit.
// Without a limit nothing exceeds.
func (c *Customer) ExceedsCredit(amount decimal.Decimal) bool {
	if c.LimiteCredito == nil {
		return false
	}
	return c.SaldoActual.Add(amount).GreaterThan(*c.LimiteCredito)
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
