package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/domain/registers/cash"
	"distripos/internal/infrastructure/storage/postgres"
)

const (
	cashSessionsTable  = "cajas"
	cashMovementsTable = "movimientos_caja"
)

var (
	cashSessionColumns  = postgres.ExtractDBColumns[cash.Session]()
	cashMovementColumns = postgres.ExtractDBColumns[cash.Movement]()
)

// CashRepo implements cash.Repository. At most one ABIERTA row per tenant is
// enforced by the partial unique index cajas_one_open_per_tenant.
type CashRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ cash.Repository = (*CashRepo)(nil)

func NewCashRepo(txManager *postgres.TxManager) *CashRepo {
	return &CashRepo{
		txManager: txManager,
		builder:   postgres.Builder(),
	}
}

func (r *CashRepo) sessions(tenantID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(cashSessionColumns...).
		From(cashSessionsTable).
		Where(squirrel.Eq{"tenant_id": tenantID})
}

// CreateSession does not abort the transaction when another session is open:
// the conflict is absorbed and reported as AlreadyOpen.
func (r *CashRepo) CreateSession(ctx context.Context, s *cash.Session) error {
	q := r.builder.Insert(cashSessionsTable).
		SetMap(postgres.StructToMap(s)).
		Suffix("ON CONFLICT (tenant_id) WHERE estado = 'ABIERTA' DO NOTHING")

	querier := r.txManager.GetQuerier(ctx)
	n, err := postgres.Exec(ctx, querier, q)
	if err != nil {
		return fmt.Errorf("insert cash session: %w", err)
	}
	if n == 1 {
		return nil
	}

	open, err := r.GetOpenSession(ctx, s.TenantID)
	if err != nil {
		return err
	}
	if open == nil {
		return apperror.NewConflict("cash session could not be opened")
	}
	return apperror.NewAlreadyOpen(open.ID)
}

func (r *CashRepo) GetOpenSession(ctx context.Context, tenantID id.ID) (*cash.Session, error) {
	var s cash.Session
	q := r.sessions(tenantID).
		Where(squirrel.Eq{"estado": cash.StatusOpen}).
		Limit(1)

	err := postgres.Get(ctx, r.txManager.GetQuerier(ctx), &s, q, "cash session", "open")
	if apperror.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *CashRepo) GetSession(ctx context.Context, tenantID, sessionID id.ID) (*cash.Session, error) {
	var s cash.Session
	q := r.sessions(tenantID).Where(squirrel.Eq{"id": sessionID})
	if err := postgres.Get(ctx, r.txManager.GetQuerier(ctx), &s, q, "cash session", sessionID.String()); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *CashRepo) LockSession(ctx context.Context, tenantID, sessionID id.ID) (*cash.Session, error) {
	var s cash.Session
	q := r.sessions(tenantID).
		Where(squirrel.Eq{"id": sessionID}).
		Suffix("FOR UPDATE")
	if err := postgres.Get(ctx, r.txManager.GetQuerier(ctx), &s, q, "cash session", sessionID.String()); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *CashRepo) CloseSession(ctx context.Context, s *cash.Session) (bool, error) {
	q := r.builder.Update(cashSessionsTable).
		SetMap(map[string]any{
			"monto_cierre":   s.MontoCierre,
			"monto_esperado": s.MontoEsperado,
			"diferencia":     s.Diferencia,
			"desvio":         s.Desvio,
			"estado":         cash.StatusClosed,
			"fecha_cierre":   s.FechaCierre,
		}).
		Where(squirrel.Eq{"tenant_id": s.TenantID, "id": s.ID, "estado": cash.StatusOpen})

	n, err := postgres.Exec(ctx, r.txManager.GetQuerier(ctx), q)
	if err != nil {
		return false, fmt.Errorf("close cash session: %w", err)
	}
	return n == 1, nil
}

func (r *CashRepo) ListClosed(ctx context.Context, tenantID id.ID, limit int) ([]cash.Session, error) {
	q := r.sessions(tenantID).
		Where(squirrel.Eq{"estado": cash.StatusClosed}).
		OrderBy("fecha_cierre DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sessions := []cash.Session{}
	if err := postgres.Select(ctx, r.txManager.GetQuerier(ctx), &sessions, q); err != nil {
		return nil, fmt.Errorf("list closed sessions: %w", err)
	}
	return sessions, nil
}

func (r *CashRepo) InsertMovement(ctx context.Context, m *cash.Movement) error {
	q := r.builder.Insert(cashMovementsTable).SetMap(postgres.StructToMap(m))
	if _, err := postgres.Exec(ctx, r.txManager.GetQuerier(ctx), q); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewNotFound("cash session", m.CajaID)
		}
		return fmt.Errorf("insert cash movement: %w", err)
	}
	return nil
}

func (r *CashRepo) GetMovement(ctx context.Context, tenantID, movementID id.ID) (*cash.Movement, error) {
	var m cash.Movement
	q := r.builder.Select(cashMovementColumns...).
		From(cashMovementsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": movementID})
	if err := postgres.Get(ctx, r.txManager.GetQuerier(ctx), &m, q, "cash movement", movementID.String()); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *CashRepo) MarkReversed(ctx context.Context, tenantID, movementID id.ID) (bool, error) {
	q := r.builder.Update(cashMovementsTable).
		Set("anulado", true).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": movementID, "anulado": false})

	n, err := postgres.Exec(ctx, r.txManager.GetQuerier(ctx), q)
	if err != nil {
		return false, fmt.Errorf("mark movement reversed: %w", err)
	}
	return n == 1, nil
}

// ListMovements relies on UUIDv7 ids for insertion order within equal fechas.
func (r *CashRepo) ListMovements(ctx context.Context, tenantID, sessionID id.ID) ([]cash.Movement, error) {
	q := r.builder.Select(cashMovementColumns...).
		From(cashMovementsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "caja_id": sessionID}).
		OrderBy("fecha ASC", "id ASC")

	movements := []cash.Movement{}
	if err := postgres.Select(ctx, r.txManager.GetQuerier(ctx), &movements, q); err != nil {
		return nil, fmt.Errorf("list cash movements: %w", err)
	}
	return movements, nil
}

func (r *CashRepo) Totals(ctx context.Context, tenantID, sessionID id.ID) (cash.Totals, error) {
	var totals cash.Totals
	q := r.builder.Select(
		"COALESCE(SUM(monto) FILTER (WHERE tipo = 'INGRESO'), 0) AS ingresos",
		"COALESCE(SUM(monto) FILTER (WHERE tipo = 'EGRESO'), 0) AS egresos",
	).
		From(cashMovementsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "caja_id": sessionID})

	if err := postgres.Get(ctx, r.txManager.GetQuerier(ctx), &totals, q, "cash session", sessionID.String()); err != nil {
		return cash.Totals{}, err
	}
	return totals, nil
}
