package cash

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/apperror"
	appctx "distripos/internal/core/context"
	"distripos/internal/core/entity"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/core/tx"
	"distripos/internal/domain/audit"
	"distripos/internal/domain/events"
	"distripos/pkg/logger"
)

// ErrLockBusy is returned by a Locker when the key is held elsewhere.
var ErrLockBusy = errors.New("cash: lock busy")

const historyLimit = 10

// ServiceConfig wires the cash service. Locker, Publisher, Audit and
// Invalidator are optional.
type ServiceConfig struct {
	Repo        Repository
	TxManager   tx.Manager
	Locker      Locker
	Publisher   events.Publisher
	Audit       audit.Recorder
	Invalidator events.Invalidator
}

// Service manages cash sessions and their movements.
type Service struct {
	repo        Repository
	txManager   tx.Manager
	locker      Locker
	publisher   events.Publisher
	audit       audit.Recorder
	invalidator events.Invalidator
	now         func() time.Time
}

// NewService creates a cash service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:        cfg.Repo,
		txManager:   cfg.TxManager,
		locker:      cfg.Locker,
		publisher:   cfg.Publisher,
		audit:       cfg.Audit,
		invalidator: cfg.Invalidator,
		now:         time.Now,
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.invalidator == nil {
		s.invalidator = events.NopInvalidator{}
	}
	return s
}

// Open starts a session with the given float. At most one session per tenant
// is open at any time.
func (s *Service) Open(ctx context.Context, montoApertura decimal.Decimal) (*Session, error) {
	scope, err := security.Authorize(ctx, security.CashOpen)
	if err != nil {
		return nil, err
	}
	if montoApertura.IsNegative() {
		return nil, apperror.NewValidation("montoApertura cannot be negative").
			WithDetail("field", "montoApertura")
	}

	release, err := s.lock(ctx, scope.TenantID)
	if err != nil {
		return nil, err
	}
	defer release(context.WithoutCancel(ctx))

	session := &Session{
		TenantEntity:  entity.NewTenantEntity(scope.TenantID),
		UsuarioID:     scope.UserID,
		MontoApertura: montoApertura,
		Estado:        StatusOpen,
		FechaApertura: s.now(),
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		open, err := s.repo.GetOpenSession(ctx, scope.TenantID)
		if err != nil {
			return err
		}
		if open != nil {
			return apperror.NewAlreadyOpen(open.ID)
		}
		return s.repo.CreateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "cash session opened",
		"session_id", session.ID,
		"monto_apertura", montoApertura.String(),
	)
	s.invalidate(ctx, scope.TenantID)
	return session, nil
}

func (s *Service) lock(ctx context.Context, tenantID id.ID) (func(context.Context), error) {
	noop := func(context.Context) {}
	if s.locker == nil {
		return noop, nil
	}
	release, err := s.locker.Acquire(ctx, "cash:open:"+tenantID.String())
	if err == nil {
		return release, nil
	}
	if errors.Is(err, ErrLockBusy) {
		return nil, apperror.NewConflict("a cash session is being opened").
			WithDetail("tenant_id", tenantID)
	}
	// The unique index still guards the invariant.
	logger.Warn(ctx, "cash lock unavailable, relying on store constraint", "error", err)
	return noop, nil
}

// Close counts the drawer and ends the session. The expected amount, the
// difference and its classification are stored on the session.
func (s *Service) Close(ctx context.Context, sessionID id.ID, counted decimal.Decimal) (*CloseResult, error) {
	scope, err := security.Authorize(ctx, security.CashOpen)
	if err != nil {
		return nil, err
	}
	if counted.IsNegative() {
		return nil, apperror.NewValidation("montoCierre cannot be negative").
			WithDetail("field", "montoCierre")
	}

	var result *CloseResult
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		session, err := s.repo.LockSession(ctx, scope.TenantID, sessionID)
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return apperror.NewConflict("cash session is already closed").
				WithDetail("session_id", sessionID)
		}

		totals, err := s.repo.Totals(ctx, scope.TenantID, sessionID)
		if err != nil {
			return fmt.Errorf("cash totals: %w", err)
		}

		expected := Expected(session.MontoApertura, totals)
		difference := counted.Sub(expected)
		deviation := ClassifyDeviation(expected, difference)
		closedAt := s.now()

		session.MontoCierre = &counted
		session.MontoEsperado = &expected
		session.Diferencia = &difference
		session.Desvio = &deviation
		session.Estado = StatusClosed
		session.FechaCierre = &closedAt

		closed, err := s.repo.CloseSession(ctx, session)
		if err != nil {
			return err
		}
		if !closed {
			return apperror.NewConflict("cash session is already closed").
				WithDetail("session_id", sessionID)
		}

		if err := s.audit.Record(ctx, audit.Entry{
			EntityType: "cash_session",
			EntityID:   sessionID,
			Action:     audit.ActionClose,
			Changes: map[string]any{
				"montoEsperado": expected.String(),
				"montoCierre":   counted.String(),
				"diferencia":    difference.String(),
				"desvio":        deviation,
			},
		}); err != nil {
			return err
		}

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, events.Event{
				TenantID:      scope.TenantID,
				AggregateType: "cash_session",
				AggregateID:   sessionID,
				EventType:     events.CashClosed,
				Scopes:        []string{events.ScopeCash, events.ScopeDashboard},
				Payload:       map[string]any{"diferencia": difference.String(), "desvio": deviation},
			}); err != nil {
				return err
			}
		}

		result = &CloseResult{
			SessionID:   sessionID,
			Expected:    expected,
			Counted:     counted,
			Discrepancy: difference,
			Deviation:   deviation,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Deviation != DeviationNormal {
		logger.Warn(ctx, "cash session closed with deviation",
			"session_id", sessionID,
			"diferencia", result.Discrepancy.String(),
			"desvio", result.Deviation,
		)
	}
	s.invalidate(ctx, scope.TenantID)
	return result, nil
}

// RecordMovement appends a manual movement to an open session.
func (s *Service) RecordMovement(ctx context.Context, in MovementInput) (*Movement, error) {
	scope, err := security.Authorize(ctx, security.CashMovement)
	if err != nil {
		return nil, err
	}
	if err := validateMovement(in.Tipo, in.Monto, in.Concepto); err != nil {
		return nil, err
	}

	var m *Movement
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		session, err := s.repo.GetSession(ctx, scope.TenantID, in.SessionID)
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return apperror.NewNotFound("open cash session", in.SessionID)
		}
		m = s.newMovement(scope.TenantID, session.ID, in.Tipo, in.Monto, in.Concepto, in.Referencia)
		m.UsuarioID = scope.UserID
		return s.repo.InsertMovement(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, scope.TenantID)
	return m, nil
}

// RecordLinked appends a movement owned by another operation to the tenant's
// open session. It joins the caller's transaction and fails with
// NoOpenCashSession when the drawer is closed.
func (s *Service) RecordLinked(ctx context.Context, tenantID id.ID, tipo MovementType, monto decimal.Decimal, concepto, referencia string) (*Movement, error) {
	m, err := s.recordInOpen(ctx, tenantID, tipo, monto, concepto, referencia)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperror.NewNoOpenCashSession()
	}
	return m, nil
}

// RecordIfOpen is RecordLinked that does nothing when no session is open.
func (s *Service) RecordIfOpen(ctx context.Context, tenantID id.ID, tipo MovementType, monto decimal.Decimal, concepto, referencia string) (*Movement, error) {
	return s.recordInOpen(ctx, tenantID, tipo, monto, concepto, referencia)
}

func (s *Service) recordInOpen(ctx context.Context, tenantID id.ID, tipo MovementType, monto decimal.Decimal, concepto, referencia string) (*Movement, error) {
	if err := validateMovement(tipo, monto, concepto); err != nil {
		return nil, err
	}
	if referencia == "" {
		return nil, apperror.NewValidation("referencia is required for linked movements")
	}

	session, err := s.repo.GetOpenSession(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	m := s.newMovement(tenantID, session.ID, tipo, monto, concepto, &referencia)
	m.UsuarioID = appctx.GetUserID(ctx)
	if err := s.repo.InsertMovement(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteMovement cancels a manual movement with a compensating reversal.
// Movements linked to a sale or payment cannot be removed, and only
// movements of the open session can be reversed.
func (s *Service) DeleteMovement(ctx context.Context, movementID id.ID) (*Movement, error) {
	scope, err := security.Authorize(ctx, security.CashMovement)
	if err != nil {
		return nil, err
	}

	var reversal *Movement
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		original, err := s.repo.GetMovement(ctx, scope.TenantID, movementID)
		if err != nil {
			return err
		}
		if original.IsLinked() {
			return apperror.NewLinkedMovement(movementID, *original.Referencia)
		}
		if original.ReversaDe != nil {
			return apperror.NewConflict("a reversal entry cannot be reversed").
				WithDetail("movement_id", movementID)
		}

		session, err := s.repo.LockSession(ctx, scope.TenantID, original.CajaID)
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return apperror.NewConflict("movements of a closed cash session cannot be reversed").
				WithDetail("session_id", session.ID)
		}

		marked, err := s.repo.MarkReversed(ctx, scope.TenantID, movementID)
		if err != nil {
			return err
		}
		if !marked {
			return apperror.NewConflict("movement is already reversed").
				WithDetail("movement_id", movementID)
		}

		reversal = s.newMovement(scope.TenantID, session.ID, original.Tipo.Opposite(), original.Monto,
			"Reverso: "+original.Concepto, nil)
		reversal.ReversaDe = &original.ID
		reversal.UsuarioID = scope.UserID
		if err := s.repo.InsertMovement(ctx, reversal); err != nil {
			return err
		}

		return s.audit.Record(ctx, audit.Entry{
			EntityType: "cash_movement",
			EntityID:   movementID,
			Action:     audit.ActionReverse,
			Changes:    map[string]any{"reversa": reversal.ID, "monto": original.Monto.String()},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, scope.TenantID)
	return reversal, nil
}

// Current returns the open session with its ledger, or nil when the drawer
// is closed.
func (s *Service) Current(ctx context.Context) (*SessionView, error) {
	scope, err := security.Authorize(ctx, security.CashView)
	if err != nil {
		return nil, err
	}

	session, err := s.repo.GetOpenSession(ctx, scope.TenantID)
	if err != nil || session == nil {
		return nil, err
	}

	movements, err := s.repo.ListMovements(ctx, scope.TenantID, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list cash movements: %w", err)
	}
	totals, err := s.repo.Totals(ctx, scope.TenantID, session.ID)
	if err != nil {
		return nil, fmt.Errorf("cash totals: %w", err)
	}
	if movements == nil {
		movements = []Movement{}
	}

	return &SessionView{
		Session:   session,
		Movements: movements,
		Totals:    totals,
		Balance:   Expected(session.MontoApertura, totals),
	}, nil
}

// History returns the last closed sessions, newest first.
func (s *Service) History(ctx context.Context) ([]Session, error) {
	scope, err := security.Authorize(ctx, security.CashView)
	if err != nil {
		return nil, err
	}
	return s.repo.ListClosed(ctx, scope.TenantID, historyLimit)
}

// LastClose returns the counted amount of the latest closed session, zero
// when the tenant never closed one.
func (s *Service) LastClose(ctx context.Context) (decimal.Decimal, error) {
	scope, err := security.Authorize(ctx, security.CashView)
	if err != nil {
		return decimal.Zero, err
	}
	closed, err := s.repo.ListClosed(ctx, scope.TenantID, 1)
	if err != nil {
		return decimal.Zero, err
	}
	if len(closed) == 0 || closed[0].MontoCierre == nil {
		return decimal.Zero, nil
	}
	return *closed[0].MontoCierre, nil
}

func (s *Service) newMovement(tenantID, sessionID id.ID, tipo MovementType, monto decimal.Decimal, concepto string, referencia *string) *Movement {
	return &Movement{
		TenantEntity: entity.NewTenantEntity(tenantID),
		CajaID:       sessionID,
		Tipo:         tipo,
		Monto:        monto,
		Concepto:     strings.TrimSpace(concepto),
		Referencia:   referencia,
		Fecha:        s.now(),
	}
}

func (s *Service) invalidate(ctx context.Context, tenantID id.ID) {
	if err := s.invalidator.Invalidate(ctx, tenantID, events.ScopeCash, events.ScopeDashboard); err != nil {
		logger.Warn(ctx, "cache invalidation failed", "error", err)
	}
}

func validateMovement(tipo MovementType, monto decimal.Decimal, concepto string) error {
	if !tipo.Valid() {
		return apperror.NewValidation("tipo must be INGRESO or EGRESO").
			WithDetail("field", "tipo")
	}
	if !monto.IsPositive() {
		return apperror.NewValidation("monto must be positive").
			WithDetail("field", "monto")
	}
	if strings.TrimSpace(concepto) == "" {
		return apperror.NewValidation("concepto is required").
			WithDetail("field", "concepto")
	}
	return nil
}
