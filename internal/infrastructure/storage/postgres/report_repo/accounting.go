package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"distripos/internal/core/id"
	"distripos/internal/core/tenant"
	"distripos/internal/domain/accounting"
	"distripos/internal/infrastructure/storage/postgres"
)

const (
	expensesTable     = "gastos"
	taxMovementsTable = "movimientos_impositivos"
	companyTable      = "configuracion_empresa"
)

// AccountingRepo implements accounting.Repository.
type AccountingRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ accounting.Repository = (*AccountingRepo)(nil)

func NewAccountingRepo(txManager *postgres.TxManager) *AccountingRepo {
	return &AccountingRepo{txManager: txManager, builder: postgres.Builder()}
}

func (r *AccountingRepo) InsertExpense(ctx context.Context, e *accounting.Expense) error {
	q := r.builder.Insert(expensesTable).SetMap(postgres.StructToMap(e))
	if _, err := postgres.Exec(ctx, r.txManager.GetQuerier(ctx), q); err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (r *AccountingRepo) InsertTaxMovement(ctx context.Context, m *accounting.TaxMovement) error {
	q := r.builder.Insert(taxMovementsTable).SetMap(postgres.StructToMap(m))
	if _, err := postgres.Exec(ctx, r.txManager.GetQuerier(ctx), q); err != nil {
		return fmt.Errorf("insert tax movement: %w", err)
	}
	return nil
}

func (r *AccountingRepo) sum(ctx context.Context, q squirrel.SelectBuilder) (decimal.Decimal, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("build query: %w", err)
	}
	var total decimal.Decimal
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *AccountingRepo) InvoicedTotal(ctx context.Context, tenantID id.ID, from, to time.Time) (decimal.Decimal, error) {
	total, err := r.sum(ctx, r.builder.Select("COALESCE(SUM(total), 0)").
		From("ventas").
		Where(squirrel.Eq{"tenant_id": tenantID, "estado": "COMPLETADA"}).
		Where(squirrel.GtOrEq{"fecha": from}).
		Where(squirrel.Lt{"fecha": to}))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invoiced total: %w", err)
	}
	return total, nil
}

func (r *AccountingRepo) ExpenseTotal(ctx context.Context, tenantID id.ID, from, to time.Time) (decimal.Decimal, error) {
	total, err := r.sum(ctx, r.builder.Select("COALESCE(SUM(monto), 0)").
		From(expensesTable).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		Where(squirrel.GtOrEq{"fecha": from}).
		Where(squirrel.Lt{"fecha": to}))
	if err != nil {
		return decimal.Zero, fmt.Errorf("expense total: %w", err)
	}
	return total, nil
}

func (r *AccountingRepo) ListTaxMovements(ctx context.Context, tenantID id.ID, from, to time.Time) ([]accounting.TaxMovement, error) {
	q := r.builder.Select(postgres.ExtractDBColumns[accounting.TaxMovement]()...).
		From(taxMovementsTable).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		Where(squirrel.GtOrEq{"fecha": from}).
		Where(squirrel.Lt{"fecha": to}).
		OrderBy("fecha ASC", "id ASC")

	movements := []accounting.TaxMovement{}
	if err := postgres.Select(ctx, r.txManager.GetQuerier(ctx), &movements, q); err != nil {
		return nil, fmt.Errorf("list tax movements: %w", err)
	}
	return movements, nil
}

func (r *AccountingRepo) RecentExpenses(ctx context.Context, tenantID id.ID, limit int) ([]accounting.Expense, error) {
	q := r.builder.Select(postgres.ExtractDBColumns[accounting.Expense]()...).
		From(expensesTable).
		Where(squirrel.Eq{"tenant_id": tenantID}).
		OrderBy("fecha DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	expenses := []accounting.Expense{}
	if err := postgres.Select(ctx, r.txManager.GetQuerier(ctx), &expenses, q); err != nil {
		return nil, fmt.Errorf("recent expenses: %w", err)
	}
	return expenses, nil
}

func (r *AccountingRepo) GetCompanyConfig(ctx context.Context, tenantID id.ID) (*tenant.CompanyConfig, error) {
	var cfg tenant.CompanyConfig
	err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &cfg, `
		SELECT tenant_id, razon_social, cuit, direccion, alicuota_iibb, alicuota_ley_cheque, updated_at
		FROM `+companyTable+`
		WHERE tenant_id = $1
	`, tenantID)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get company config: %w", err)
	}
	return &cfg, nil
}
