// Package receivable is the accounts-receivable ledger: a materialized
// saldoActual per customer and the debit/credit log it must equal.
package receivable

import (
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/entity"
	"distripos/internal/core/id"
	"distripos/internal/core/types"
)

// MovementType is the sign of an account movement: DEBITO raises the
// balance, CREDITO lowers it.
type MovementType string

const (
	Debit  MovementType = "DEBITO"
	Credit MovementType = "CREDITO"
)

// Signed returns monto with the sign the movement applies to the balance.
func (t MovementType) Signed(monto decimal.Decimal) decimal.Decimal {
	if t == Credit {
		return monto.Neg()
	}
	return monto
}

// Movement is immutable once inserted.
type Movement struct {
	entity.TenantEntity

	ClienteID  id.ID           `db:"cliente_id" json:"clienteId"`
	UsuarioID  id.ID           `db:"usuario_id" json:"usuarioId"`
	Tipo       MovementType    `db:"tipo" json:"tipo"`
	Monto      decimal.Decimal `db:"monto" json:"monto"`
	Concepto   string          `db:"concepto" json:"concepto"`
	Referencia *string         `db:"referencia" json:"referencia,omitempty"`
	Fecha      time.Time       `db:"fecha" json:"fecha"`
}

// Account is the receivable view of a customer.
type Account struct {
	CustomerID      id.ID            `db:"id" json:"customerId"`
	Nombre          string           `db:"nombre" json:"nombre"`
	CuentaCorriente bool             `db:"cuenta_corriente" json:"cuentaCorriente"`
	SaldoActual     decimal.Decimal  `db:"saldo_actual" json:"saldoActual"`
	LimiteCredito   *decimal.Decimal `db:"limite_credito" json:"limiteCredito,omitempty"`
}

// Statement is an account with its latest movements.
type Statement struct {
	Account   Account    `json:"account"`
	Movements []Movement `json:"movements"`
}

// PaymentInput is a customer payment on account.
type PaymentInput struct {
	CustomerID id.ID
	Monto      decimal.Decimal
	MetodoPago types.PaymentMethod
	Concepto   string
}

// PaymentResult describes a registered payment. CashMovementID is nil when
// the payment left no trace in the cash drawer.
type PaymentResult struct {
	Movement       *Movement       `json:"movement"`
	CashMovementID *id.ID          `json:"cashMovementId,omitempty"`
	SaldoActual    decimal.Decimal `json:"saldoActual"`
}
