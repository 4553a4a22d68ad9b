// Package reports provides the sales dashboard.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/id"
)

// Period is a half-open interval [From, To).
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Previous returns the period of equal length that ends where p starts.
func (p Period) Previous() Period {
	length := p.To.Sub(p.From)
	return Period{From: p.From.Add(-length), To: p.From}
}

// DailySales is one day of completed sales.
type DailySales struct {
	Fecha    string          `db:"fecha" json:"fecha"`
	Total    decimal.Decimal `db:"total" json:"total"`
	Cantidad int64           `db:"cantidad" json:"cantidad"`
}

// TopProduct ranks a product by units sold.
type TopProduct struct {
	ProductID id.ID           `db:"producto_id" json:"productoId"`
	Nombre    string          `db:"nombre" json:"nombre"`
	Cantidad  int64           `db:"cantidad" json:"cantidad"`
	Total     decimal.Decimal `db:"total" json:"total"`
}

// Totals aggregates completed sales of a period.
type Totals struct {
	Total    decimal.Decimal `db:"total" json:"total"`
	Cantidad int64           `db:"cantidad" json:"cantidad"`
}

// KPIs are the dashboard headline numbers.
type KPIs struct {
	TotalVentas    decimal.Decimal `json:"totalVentas"`
	CantidadVentas int64           `json:"cantidadVentas"`
	TicketPromedio decimal.Decimal `json:"ticketPromedio"`
	// Crecimiento is the percentage change against the previous period
	Crecimiento decimal.Decimal `json:"crecimiento"`
}

// Dashboard is the cached dashboard payload.
type Dashboard struct {
	Period       Period       `json:"period"`
	VentasPorDia []DailySales `json:"ventasPorDia"`
	TopProductos []TopProduct `json:"topProductos"`
	KPIs         KPIs         `json:"kpis"`
	GeneratedAt  time.Time    `json:"generatedAt"`
}
