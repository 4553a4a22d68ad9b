package receivable

import (
	"context"
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
	"distripos/internal/core/types"
	"distripos/internal/domain/events"
	"distripos/internal/domain/registers/cash"
	"distripos/pkg/logger"
)

const (
	statementLimit  = 50
	defaultConcepto = "Pago a cuenta"
)

// Service posts to customer accounts. Every change appends a movement and
// adjusts saldoActual in the same transaction.
type Service struct {
	repo        Repository
	cash        *cash.Service
	txManager   tx.Manager
	publisher   events.Publisher
	invalidator events.Invalidator
	now         func() time.Time
}

// NewService creates a receivable service. publisher and invalidator may be nil.
func NewService(repo Repository, cashService *cash.Service, txManager tx.Manager, publisher events.Publisher, invalidator events.Invalidator) *Service {
	if invalidator == nil {
		invalidator = events.NopInvalidator{}
	}
	return &Service{
		repo:        repo,
		cash:        cashService,
		txManager:   txManager,
		publisher:   publisher,
		invalidator: invalidator,
		now:         time.Now,
	}
}

// RegisterPayment credits the customer's account. A cash payment also enters
// the open cash session; with no session open the payment is still recorded
// and the drawer is left untouched.
func (s *Service) RegisterPayment(ctx context.Context, in PaymentInput) (*PaymentResult, error) {
	scope, err := security.Authorize(ctx, security.CustomerAccount)
	if err != nil {
		return nil, err
	}
	if !in.Monto.IsPositive() {
		return nil, apperror.NewValidation("monto must be positive").WithDetail("field", "monto")
	}
	if in.MetodoPago == "" {
		in.MetodoPago = types.PaymentCash
	}
	if !in.MetodoPago.Valid() || in.MetodoPago == types.PaymentAccount {
		return nil, apperror.NewValidation("invalid payment method").
			WithDetail("field", "metodoPago").
			WithDetail("value", string(in.MetodoPago))
	}
	concepto := strings.TrimSpace(in.Concepto)
	if concepto == "" {
		concepto = defaultConcepto
	}

	var result *PaymentResult
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// No running-account check: a disabled account may still carry a balance.
		if _, err := s.repo.GetAccount(ctx, scope.TenantID, in.CustomerID); err != nil {
			return err
		}

		m, saldo, err := s.post(ctx, scope.TenantID, in.CustomerID, Credit, in.Monto, concepto, nil)
		if err != nil {
			return err
		}
		result = &PaymentResult{Movement: m, SaldoActual: saldo}

		if in.MetodoPago == types.PaymentCash {
			cm, err := s.cash.RecordIfOpen(ctx, scope.TenantID, cash.Ingress, in.Monto,
				"Cobro Cta. Cte.: "+concepto, m.ID.String())
			if err != nil {
				return err
			}
			if cm != nil {
				result.CashMovementID = &cm.ID
			}
		}

		if s.publisher != nil {
			return s.publisher.Publish(ctx, events.Event{
				TenantID:      scope.TenantID,
				AggregateType: "customer",
				AggregateID:   in.CustomerID,
				EventType:     events.PaymentReceived,
				Scopes:        []string{events.ScopeCustomers, events.ScopeCash, events.ScopeDashboard},
				Payload:       map[string]any{"monto": in.Monto.String(), "metodo": in.MetodoPago},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.CashMovementID == nil && in.MetodoPago == types.PaymentCash {
		logger.Info(ctx, "cash payment recorded without open cash session",
			"customer_id", in.CustomerID,
			"movement_id", result.Movement.ID,
		)
	}
	if err := s.invalidator.Invalidate(ctx, scope.TenantID, events.ScopeCustomers, events.ScopeCash, events.ScopeDashboard); err != nil {
		logger.Warn(ctx, "cache invalidation failed", "error", err)
	}
	return result, nil
}

// Debit charges the account inside the caller's transaction.
func (s *Service) Debit(ctx context.Context, tenantID, customerID id.ID, monto decimal.Decimal, concepto, referencia string) (*Movement, error) {
	m, _, err := s.post(ctx, tenantID, customerID, Debit, monto, concepto, &referencia)
	return m, err
}

// Credit abates the account inside the caller's transaction.
func (s *Service) Credit(ctx context.Context, tenantID, customerID id.ID, monto decimal.Decimal, concepto, referencia string) (*Movement, error) {
	m, _, err := s.post(ctx, tenantID, customerID, Credit, monto, concepto, &referencia)
	return m, err
}

func (s *Service) post(ctx context.Context, tenantID, customerID id.ID, tipo MovementType, monto decimal.Decimal, concepto string, referencia *string) (*Movement, decimal.Decimal, error) {
	if !monto.IsPositive() {
		return nil, decimal.Zero, apperror.NewValidation("monto must be positive")
	}

	m := &Movement{
		TenantEntity: entity.NewTenantEntity(tenantID),
		ClienteID:    customerID,
		UsuarioID:    appctx.GetUserID(ctx),
		Tipo:         tipo,
		Monto:        monto,
		Concepto:     concepto,
		Referencia:   referencia,
		Fecha:        s.now(),
	}
	if err := s.repo.InsertMovement(ctx, m); err != nil {
		return nil, decimal.Zero, fmt.Errorf("insert account movement: %w", err)
	}

	saldo, err := s.repo.AdjustBalance(ctx, tenantID, customerID, tipo.Signed(monto))
	if err != nil {
		return nil, decimal.Zero, err
	}
	return m, saldo, nil
}

// Statement returns the customer's balance and latest movements.
func (s *Service) Statement(ctx context.Context, customerID id.ID) (*Statement, error) {
	scope, err := security.Authorize(ctx, security.CustomerView)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.GetAccount(ctx, scope.TenantID, customerID)
	if err != nil {
		return nil, err
	}
	movements, err := s.repo.ListMovements(ctx, scope.TenantID, customerID, statementLimit)
	if err != nil {
		return nil, fmt.Errorf("list account movements: %w", err)
	}
	if movements == nil {
		movements = []Movement{}
	}
	return &Statement{Account: *account, Movements: movements}, nil
}
