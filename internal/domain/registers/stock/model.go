// Package stock is the product stock ledger: stockActual on each product plus
// the append-only movement log that explains it.
package stock

import (
	"time"

	"distripos/internal/core/entity"
	"distripos/internal/core/id"
)

// MovementType is the cause tag of a stock movement.
type MovementType string

const (
	TypeOpening  MovementType = "INVENTARIO_INICIAL"
	TypeManual   MovementType = "AJUSTE_MANUAL"
	TypeSale     MovementType = "VENTA"
	TypeSaleVoid MovementType = "ANULACION_VENTA"
)

// Movement is immutable once inserted.
type Movement struct {
	entity.TenantEntity

	ProductoID id.ID        `db:"producto_id" json:"productoId"`
	Cantidad   int64        `db:"cantidad" json:"cantidad"`
	Tipo       MovementType `db:"tipo" json:"tipo"`
	Referencia *string      `db:"referencia" json:"referencia,omitempty"`
	Notas      string       `db:"notas" json:"notas"`
	Fecha      time.Time    `db:"fecha" json:"fecha"`
}

// Line is one product delta of a posting.
type Line struct {
	ProductID id.ID
	Delta     int64
}

// Posting groups deltas that share a cause, e.g. all lines of one sale.
type Posting struct {
	TenantID   id.ID
	Tipo       MovementType
	Referencia *string
	Notas      string
	Lines      []Line
}
