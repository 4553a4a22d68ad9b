// Package report_repo provides PostgreSQL implementations for the read-side
// repositories: dashboard aggregates, accounting and reconciliation.
package report_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"distripos/internal/core/id"
	"distripos/internal/domain/reports"
	"distripos/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
}

var _ reports.Repository = (*ReportRepo)(nil)

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{txManager: txManager}
}

// Days are bucketed in UTC.
const salesByDayQuery = `
	SELECT to_char((v.fecha AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD') AS fecha,
		COALESCE(SUM(v.total), 0) AS total,
		COUNT(*) AS cantidad
	FROM ventas v
	WHERE v.tenant_id = $1
		AND v.estado = 'COMPLETADA'
		AND v.fecha >= $2 AND v.fecha < $3
	GROUP BY 1
	ORDER BY 1
`

func (r *ReportRepo) SalesByDay(ctx context.Context, tenantID id.ID, p reports.Period) ([]reports.DailySales, error) {
	days := []reports.DailySales{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &days, salesByDayQuery, tenantID, p.From, p.To); err != nil {
		return nil, fmt.Errorf("sales by day: %w", err)
	}
	return days, nil
}

const topProductsQuery = `
	SELECT d.producto_id,
		COALESCE(p.nombre, '') AS nombre,
		SUM(d.cantidad)::bigint AS cantidad,
		SUM(d.subtotal) AS total
	FROM detalle_ventas d
	JOIN ventas v ON v.id = d.venta_id AND v.tenant_id = d.tenant_id
	LEFT JOIN productos p ON p.id = d.producto_id AND p.tenant_id = d.tenant_id
	WHERE d.tenant_id = $1
		AND v.estado = 'COMPLETADA'
		AND v.fecha >= $2 AND v.fecha < $3
	GROUP BY d.producto_id, p.nombre
	ORDER BY cantidad DESC, nombre ASC
	LIMIT $4
`

func (r *ReportRepo) TopProducts(ctx context.Context, tenantID id.ID, p reports.Period, limit int) ([]reports.TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	top := []reports.TopProduct{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &top, topProductsQuery, tenantID, p.From, p.To, limit); err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	return top, nil
}

const salesTotalsQuery = `
	SELECT COALESCE(SUM(total), 0) AS total, COUNT(*) AS cantidad
	FROM ventas
	WHERE tenant_id = $1
		AND estado = 'COMPLETADA'
		AND fecha >= $2 AND fecha < $3
`

func (r *ReportRepo) SalesTotals(ctx context.Context, tenantID id.ID, p reports.Period) (reports.Totals, error) {
	var t reports.Totals
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &t, salesTotalsQuery, tenantID, p.From, p.To); err != nil {
		return reports.Totals{}, fmt.Errorf("sales totals: %w", err)
	}
	return t, nil
}
