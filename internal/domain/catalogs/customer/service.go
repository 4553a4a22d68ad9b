package customer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/core/tx"
	"distripos/internal/domain"
	"distripos/internal/domain/audit"
	"distripos/internal/domain/events"
	"distripos/pkg/logger"
)

const entityName = "customer"

// Service provides business logic for the customer catalog.
type Service struct {
	repo        Repository
	txManager   tx.Manager
	audit       audit.Recorder
	invalidator events.Invalidator
	now         func() time.Time
}

// NewService creates a customer service. audit and invalidator may be nil.
func NewService(repo Repository, txManager tx.Manager, recorder audit.Recorder, invalidator events.Invalidator) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if invalidator == nil {
		invalidator = events.NopInvalidator{}
	}
	return &Service{
		repo:        repo,
		txManager:   txManager,
		audit:       recorder,
		invalidator: invalidator,
		now:         time.Now,
	}
}

// Create inserts a customer. The balance always starts at zero.
func (s *Service) Create(ctx context.Context, c *Customer) error {
	scope, err := security.Authorize(ctx, security.CustomerEdit)
	if err != nil {
		return err
	}
	if c.CuentaCorriente || c.LimiteCredito != nil {
		if err := scope.Require(security.CustomerAccount); err != nil {
			return err
		}
	}

	c.TenantID = scope.TenantID
	if id.IsNil(c.ID) {
		c.ID = id.New()
	}
	c.SaldoActual = decimal.Zero
	c.Normalize()
	if err := c.Validate(ctx); err != nil {
		return err
	}
	c.Touch(s.now())

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: entityName,
			EntityID:   c.ID,
			Action:     audit.ActionCreate,
			Changes:    map[string]any{"nombre": c.Nombre, "cuentaCorriente": c.CuentaCorriente},
		})
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, scope.TenantID)
	return nil
}

// Update writes customer data; the balance is left untouched.
func (s *Service) Update(ctx context.Context, c *Customer) error {
	scope, err := security.Authorize(ctx, security.CustomerEdit)
	if err != nil {
		return err
	}

	c.TenantID = scope.TenantID
	c.Normalize()
	if err := c.Validate(ctx); err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, scope.TenantID, c.ID)
		if err != nil {
			return err
		}

		accountChanged := existing.CuentaCorriente != c.CuentaCorriente ||
			!equalLimit(existing, c)
		if accountChanged {
			if err := scope.Require(security.CustomerAccount); err != nil {
				return err
			}
		}

		c.SaldoActual = existing.SaldoActual
		c.CreatedAt = existing.CreatedAt
		c.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: entityName,
			EntityID:   c.ID,
			Action:     audit.ActionUpdate,
			Changes:    map[string]any{"nombre": c.Nombre, "cuentaCorriente": c.CuentaCorriente},
		})
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, scope.TenantID)
	return nil
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, customerID id.ID) (*Customer, error) {
	scope, err := security.Authorize(ctx, security.CustomerView)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, scope.TenantID, customerID)
}

// List returns a page of customers matching filter.Search.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Customer], error) {
	scope, err := security.Authorize(ctx, security.CustomerView)
	if err != nil {
		return domain.ListResult[*Customer]{}, err
	}
	return s.repo.List(ctx, scope.TenantID, filter.Normalize())
}

// Delete removes a customer whose balance is settled.
func (s *Service) Delete(ctx context.Context, customerID id.ID) error {
	scope, err := security.Authorize(ctx, security.CustomerDelete)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetByID(ctx, scope.TenantID, customerID)
		if err != nil {
			return err
		}
		if !c.SaldoActual.IsZero() {
			return apperror.NewConflict("customer has an outstanding balance").
				WithDetail("customer_id", customerID).
				WithDetail("saldo_actual", c.SaldoActual.String())
		}
		if err := s.repo.Delete(ctx, scope.TenantID, customerID); err != nil {
			return err
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: entityName,
			EntityID:   customerID,
			Action:     audit.ActionDelete,
			Changes:    map[string]any{"nombre": c.Nombre},
		})
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, scope.TenantID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, tenantID id.ID) {
	if err := s.invalidator.Invalidate(ctx, tenantID, events.ScopeCustomers); err != nil {
		logger.Warn(ctx, "cache invalidation failed", "error", err)
	}
}

func equalLimit(a, b *Customer) bool {
	if a.LimiteCredito == nil || b.LimiteCredito == nil {
		return a.LimiteCredito == nil && b.LimiteCredito == nil
	}
	return a.LimiteCredito.Equal(*b.LimiteCredito)
}
