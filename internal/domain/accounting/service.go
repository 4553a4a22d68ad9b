package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/entity"
	"distripos/internal/core/security"
	"distripos/internal/core/tx"
	"distripos/internal/domain/audit"
	"distripos/internal/domain/events"
	"distripos/pkg/logger"
)

const recentExpensesLimit = 10

type Service struct {
	repo        Repository
	txManager   tx.Manager
	audit       audit.Recorder
	invalidator events.Invalidator
	now         func() time.Time
}

// NewService creates an accounting service. recorder and invalidator may be nil.
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

// RecordExpense stores a manual expense. It does not touch the cash drawer.
func (s *Service) RecordExpense(ctx context.Context, in ExpenseInput) (*Expense, error) {
	scope, err := security.Authorize(ctx, security.AccountingRecord)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	e := &Expense{
		TenantEntity: entity.NewTenantEntity(scope.TenantID),
		Categoria:    in.Categoria,
		Descripcion:  in.Descripcion,
		Monto:        in.Monto,
		MetodoPago:   in.MetodoPago,
		Comprobante:  in.Comprobante,
		Fecha:        s.now(),
	}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertExpense(ctx, e); err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: "expense",
			EntityID:   e.ID,
			Action:     audit.ActionCreate,
			Changes:    map[string]any{"categoria": e.Categoria, "monto": e.Monto.String()},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "expense recorded", "expense_id", e.ID, "categoria", e.Categoria)
	if err := s.invalidator.Invalidate(ctx, scope.TenantID, events.ScopeDashboard); err != nil {
		logger.Warn(ctx, "cache invalidation failed", "error", err)
	}
	return e, nil
}

// RecordTaxMovement stores a withholding or perception.
func (s *Service) RecordTaxMovement(ctx context.Context, in TaxInput) (*TaxMovement, error) {
	scope, err := security.Authorize(ctx, security.AccountingRecord)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	m := &TaxMovement{
		TenantEntity: entity.NewTenantEntity(scope.TenantID),
		Tipo:         in.Tipo,
		Monto:        in.Monto,
		Operacion:    in.Operacion,
		Referencia:   in.Referencia,
		Fecha:        s.now(),
	}
	if err := s.repo.InsertTaxMovement(ctx, m); err != nil {
		return nil, fmt.Errorf("insert tax movement: %w", err)
	}
	return m, nil
}

// MonthlySummary aggregates the calendar month containing month. A zero month
// means the current one.
func (s *Service) MonthlySummary(ctx context.Context, month time.Time) (*MonthlySummary, error) {
	scope, err := security.Authorize(ctx, security.AccountingView)
	if err != nil {
		return nil, err
	}
	if month.IsZero() {
		month = s.now()
	}
	from, to := MonthRange(month)

	facturado, err := s.repo.InvoicedTotal(ctx, scope.TenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("invoiced total: %w", err)
	}
	gastos, err := s.repo.ExpenseTotal(ctx, scope.TenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("expense total: %w", err)
	}
	taxes, err := s.repo.ListTaxMovements(ctx, scope.TenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list tax movements: %w", err)
	}
	recent, err := s.repo.RecentExpenses(ctx, scope.TenantID, recentExpensesLimit)
	if err != nil {
		return nil, fmt.Errorf("recent expenses: %w", err)
	}
	cfg, err := s.repo.GetCompanyConfig(ctx, scope.TenantID)
	if err != nil {
		return nil, fmt.Errorf("company config: %w", err)
	}

	iibb := decimal.Zero
	if cfg != nil {
		iibb = EstimateIIBB(facturado, cfg.AlicuotaIIBB)
	}
	if taxes == nil {
		taxes = []TaxMovement{}
	}
	if recent == nil {
		recent = []Expense{}
	}

	return &MonthlySummary{
		Mes:                 from.Format("2006-01"),
		TotalFacturado:      facturado,
		TotalGastos:         gastos,
		IIBBEstimado:        iibb,
		MovimientosImpuesto: taxes,
		GastosRecientes:     recent,
		Config:              cfg,
	}, nil
}
