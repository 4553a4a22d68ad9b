// Package register_repo provides PostgreSQL storage for the stock, cash and
// receivable ledgers.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/domain/registers/stock"
	"distripos/internal/infrastructure/storage/postgres"
)

const (
	productTable        = "productos"
	stockMovementsTable = "movimientos_stock"
)

var stockMovementColumns = []string{
	"id", "tenant_id", "producto_id", "cantidad", "tipo", "referencia", "notas", "fecha",
}

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ stock.Repository = (*StockRepo)(nil)

func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   postgres.Builder(),
	}
}

// Decrement is a single conditional UPDATE; concurrent sales serialize on
// the row lock and the loser matches zero rows.
func (r *StockRepo) Decrement(ctx context.Context, tenantID, productID id.ID, qty int64) (bool, error) {
	q := r.builder.Update(productTable).
		Set("stock_actual", squirrel.Expr("stock_actual - ?", qty)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": productID}).
		Where(squirrel.GtOrEq{"stock_actual": qty})

	n, err := postgres.Exec(ctx, r.txManager.GetQuerier(ctx), q)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return n == 1, nil
}

func (r *StockRepo) Increment(ctx context.Context, tenantID, productID id.ID, qty int64) (bool, error) {
	q := r.builder.Update(productTable).
		Set("stock_actual", squirrel.Expr("stock_actual + ?", qty)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": productID})

	n, err := postgres.Exec(ctx, r.txManager.GetQuerier(ctx), q)
	if err != nil {
		return false, fmt.Errorf("increment stock: %w", err)
	}
	return n == 1, nil
}

func (r *StockRepo) CurrentStock(ctx context.Context, tenantID, productID id.ID) (int64, error) {
	sql, args, err := r.builder.Select("stock_actual").
		From(productTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": productID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var current int64
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&current)
	if postgres.IsNoRows(err) {
		return 0, apperror.NewNotFound("product", productID)
	}
	if err != nil {
		return 0, fmt.Errorf("current stock: %w", err)
	}
	return current, nil
}

// InsertMovements uses COPY inside a transaction and a multi-row INSERT
// otherwise.
func (r *StockRepo) InsertMovements(ctx context.Context, movements []stock.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	if r.txManager.GetTx(ctx) != nil && len(movements) > 1 {
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, []any{
				m.ID, m.TenantID, m.ProductoID, m.Cantidad, string(m.Tipo), m.Referencia, m.Notas, m.Fecha,
			})
		}
		inserter := postgres.NewBatchInserter(r.txManager)
		if _, err := inserter.CopyFromSlice(ctx, stockMovementsTable, stockMovementColumns, rows); err != nil {
			return fmt.Errorf("copy stock movements: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(stockMovementsTable).Columns(stockMovementColumns...)
	for _, m := range movements {
		q = q.Values(m.ID, m.TenantID, m.ProductoID, m.Cantidad, m.Tipo, m.Referencia, m.Notas, m.Fecha)
	}
	if _, err := postgres.Exec(ctx, r.txManager.GetQuerier(ctx), q); err != nil {
		return fmt.Errorf("insert stock movements: %w", err)
	}
	return nil
}

func (r *StockRepo) ListByProduct(ctx context.Context, tenantID, productID id.ID, limit int) ([]stock.Movement, error) {
	q := r.builder.Select(stockMovementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "producto_id": productID}).
		OrderBy("fecha DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	movements := []stock.Movement{}
	if err := postgres.Select(ctx, r.txManager.GetQuerier(ctx), &movements, q); err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	return movements, nil
}
