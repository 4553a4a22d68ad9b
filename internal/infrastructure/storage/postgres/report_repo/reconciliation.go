package report_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"distripos/internal/core/id"
	"distripos/internal/domain/reconciliation"
	"distripos/internal/infrastructure/storage/postgres"
)

// ReconciliationRepo implements reconciliation.Repository. Its queries only
// return the rows that disagree with their ledger.
type ReconciliationRepo struct {
	txManager *postgres.TxManager
}

var _ reconciliation.Repository = (*ReconciliationRepo)(nil)

func NewReconciliationRepo(txManager *postgres.TxManager) *ReconciliationRepo {
	return &ReconciliationRepo{txManager: txManager}
}

func (r *ReconciliationRepo) ListTenantIDs(ctx context.Context) ([]id.ID, error) {
	ids := []id.ID{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &ids, `
		SELECT id FROM tenants ORDER BY id
	`); err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return ids, nil
}

const stockDriftQuery = `
	SELECT p.id, p.sku, p.stock_actual, COALESCE(SUM(m.cantidad), 0)::bigint AS ledger
	FROM productos p
	LEFT JOIN movimientos_stock m ON m.producto_id = p.id AND m.tenant_id = p.tenant_id
	WHERE p.tenant_id = $1
	GROUP BY p.id, p.sku, p.stock_actual
	HAVING p.stock_actual <> COALESCE(SUM(m.cantidad), 0)
	ORDER BY p.sku
`

func (r *ReconciliationRepo) StockTotals(ctx context.Context, tenantID id.ID) ([]reconciliation.StockTotal, error) {
	totals := []reconciliation.StockTotal{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &totals, stockDriftQuery, tenantID); err != nil {
		return nil, fmt.Errorf("stock totals: %w", err)
	}
	return totals, nil
}

const balanceDriftQuery = `
	SELECT c.id, c.saldo_actual,
		COALESCE(SUM(CASE WHEN m.tipo = 'DEBITO' THEN m.monto ELSE -m.monto END), 0) AS ledger
	FROM clientes c
	LEFT JOIN movimientos_cuenta m ON m.cliente_id = c.id AND m.tenant_id = c.tenant_id
	WHERE c.tenant_id = $1
	GROUP BY c.id, c.saldo_actual
	HAVING c.saldo_actual <> COALESCE(SUM(CASE WHEN m.tipo = 'DEBITO' THEN m.monto ELSE -m.monto END), 0)
	ORDER BY c.id
`

func (r *ReconciliationRepo) BalanceTotals(ctx context.Context, tenantID id.ID) ([]reconciliation.BalanceTotal, error) {
	totals := []reconciliation.BalanceTotal{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &totals, balanceDriftQuery, tenantID); err != nil {
		return nil, fmt.Errorf("balance totals: %w", err)
	}
	return totals, nil
}
