// Package cash is the cash-drawer register: one open session per tenant and
// an append-only ledger of ingress and egress movements.
package cash

import (
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/entity"
	"distripos/internal/core/id"
)

// SessionStatus is ABIERTA until the single transition to CERRADA.
type SessionStatus string

const (
	StatusOpen   SessionStatus = "ABIERTA"
	StatusClosed SessionStatus = "CERRADA"
)

// MovementType is the direction of a cash movement.
type MovementType string

const (
	Ingress MovementType = "INGRESO"
	Egress  MovementType = "EGRESO"
)

// Valid reports whether t is a known direction.
func (t MovementType) Valid() bool {
	return t == Ingress || t == Egress
}

// Opposite returns the direction that cancels t.
func (t MovementType) Opposite() MovementType {
	if t == Ingress {
		return Egress
	}
	return Ingress
}

// Deviation classifies the closing difference relative to the expected cash.
type Deviation string

const (
	DeviationNormal   Deviation = "NORMAL"
	DeviationWarning  Deviation = "ADVERTENCIA"
	DeviationCritical Deviation = "CRITICO"
)

// Session is one cash-drawer period (caja).
type Session struct {
	entity.TenantEntity

	UsuarioID     id.ID            `db:"usuario_id" json:"usuarioId"`
	MontoApertura decimal.Decimal  `db:"monto_apertura" json:"montoApertura"`
	MontoCierre   *decimal.Decimal `db:"monto_cierre" json:"montoCierre,omitempty"`
	MontoEsperado *decimal.Decimal `db:"monto_esperado" json:"montoEsperado,omitempty"`
	Diferencia    *decimal.Decimal `db:"diferencia" json:"diferencia,omitempty"`
	Desvio        *Deviation       `db:"desvio" json:"desvio,omitempty"`
	Estado        SessionStatus    `db:"estado" json:"estado"`
	FechaApertura time.Time        `db:"fecha_apertura" json:"fechaApertura"`
	FechaCierre   *time.Time       `db:"fecha_cierre" json:"fechaCierre,omitempty"`
}

// IsOpen reports estado ABIERTA.
func (s *Session) IsOpen() bool {
	return s.Estado == StatusOpen
}

// Movement is an immutable ledger row. A reversal is a new row with the
// opposite direction and ReversaDe set; the original is flagged Anulado.
type Movement struct {
	entity.TenantEntity

	CajaID     id.ID           `db:"caja_id" json:"cajaId"`
	UsuarioID  id.ID           `db:"usuario_id" json:"usuarioId"`
	Tipo       MovementType    `db:"tipo" json:"tipo"`
	Monto      decimal.Decimal `db:"monto" json:"monto"`
	Concepto   string          `db:"concepto" json:"concepto"`
	Referencia *string         `db:"referencia" json:"referencia,omitempty"`
	ReversaDe  *id.ID          `db:"reversa_de" json:"reversaDe,omitempty"`
	Anulado    bool            `db:"anulado" json:"anulado"`
	Fecha      time.Time       `db:"fecha" json:"fecha"`
}

// IsLinked reports a movement created by a sale, void or payment.
func (m *Movement) IsLinked() bool {
	return m.Referencia != nil && *m.Referencia != ""
}

// Totals are the sums of a session's movements, reversals included.
type Totals struct {
	Ingresos decimal.Decimal `db:"ingresos" json:"ingresos"`
	Egresos  decimal.Decimal `db:"egresos" json:"egresos"`
}

// Expected returns apertura + ingresos − egresos.
func Expected(apertura decimal.Decimal, t Totals) decimal.Decimal {
	return apertura.Add(t.Ingresos).Sub(t.Egresos)
}

var (
	onePercent   = decimal.NewFromInt(1)
	fivePercent  = decimal.NewFromInt(5)
	hundredValue = decimal.NewFromInt(100)
)

// ClassifyDeviation grades |difference| as a share of expected: up to 1% is
// NORMAL, up to 5% ADVERTENCIA, above that CRITICO. With nothing expected,
// any difference is CRITICO.
func ClassifyDeviation(expected, difference decimal.Decimal) Deviation {
	if difference.IsZero() {
		return DeviationNormal
	}
	if expected.IsZero() {
		return DeviationCritical
	}
	pct := difference.Abs().Div(expected.Abs()).Mul(hundredValue)
	switch {
	case pct.LessThanOrEqual(onePercent):
		return DeviationNormal
	case pct.LessThanOrEqual(fivePercent):
		return DeviationWarning
	default:
		return DeviationCritical
	}
}

// CloseResult is returned by Close.
type CloseResult struct {
	SessionID   id.ID           `json:"sessionId"`
	Expected    decimal.Decimal `json:"expected"`
	Counted     decimal.Decimal `json:"counted"`
	Discrepancy decimal.Decimal `json:"discrepancy"`
	Deviation   Deviation       `json:"deviation"`
}

// SessionView is an open session with its ledger.
type SessionView struct {
	Session   *Session        `json:"session"`
	Movements []Movement      `json:"movements"`
	Totals    Totals          `json:"totals"`
	Balance   decimal.Decimal `json:"balance"`
}

// MovementInput is a manual movement request.
type MovementInput struct {
	SessionID  id.ID
	Tipo       MovementType
	Monto      decimal.Decimal
	Concepto   string
	Referencia *string
}
