package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/domain/registers/receivable"
	"distripos/internal/infrastructure/storage/postgres"
)

const (
	customerTable         = "clientes"
	accountMovementsTable = "movimientos_cuenta"
)

var accountMovementColumns = postgres.ExtractDBColumns[receivable.Movement]()

// ReceivableRepo implements receivable.Repository.
type ReceivableRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ receivable.Repository = (*ReceivableRepo)(nil)

func NewReceivableRepo(txManager *postgres.TxManager) *ReceivableRepo {
	return &ReceivableRepo{
		txManager: txManager,
		builder:   postgres.Builder(),
	}
}

func (r *ReceivableRepo) GetAccount(ctx context.Context, tenantID, customerID id.ID) (*receivable.Account, error) {
	var acc receivable.Account
	q := r.builder.Select(postgres.ExtractDBColumns[receivable.Account]()...).
		From(customerTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": customerID})
	if err := postgres.Get(ctx, r.txManager.GetQuerier(ctx), &acc, q, "customer", customerID.String()); err != nil {
		return nil, err
	}
	return &acc, nil
}

// AdjustBalance applies delta in place and returns the stored result, so
// concurrent payments never overwrite each other.
func (r *ReceivableRepo) AdjustBalance(ctx context.Context, tenantID, customerID id.ID, delta decimal.Decimal) (decimal.Decimal, error) {
	sql, args, err := r.builder.Update(customerTable).
		Set("saldo_actual", squirrel.Expr("saldo_actual + ?", delta)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": customerID}).
		Suffix("RETURNING saldo_actual").
		ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("build update: %w", err)
	}

	var saldo decimal.Decimal
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&saldo)
	if postgres.IsNoRows(err) {
		return decimal.Zero, apperror.NewNotFound("customer", customerID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("adjust balance: %w", err)
	}
	return saldo, nil
}

func (r *ReceivableRepo) InsertMovement(ctx context.Context, m *receivable.Movement) error {
	q := r.builder.Insert(accountMovementsTable).SetMap(postgres.StructToMap(m))
	if _, err := postgres.Exec(ctx, r.txManager.GetQuerier(ctx), q); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewNotFound("customer", m.ClienteID)
		}
		return fmt.Errorf("insert account movement: %w", err)
	}
	return nil
}

func (r *ReceivableRepo) ListMovements(ctx context.Context, tenantID, customerID id.ID, limit int) ([]receivable.Movement, error) {
	q := r.builder.Select(accountMovementColumns...).
		From(accountMovementsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "cliente_id": customerID}).
		OrderBy("fecha DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	movements := []receivable.Movement{}
	if err := postgres.Select(ctx, r.txManager.GetQuerier(ctx), &movements, q); err != nil {
		return nil, fmt.Errorf("list account movements: %w", err)
	}
	return movements, nil
}
