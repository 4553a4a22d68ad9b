// Package reconciliation checks the materialized balances against the ledgers
// they are derived from. It reports drift and never rewrites a balance.
package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/id"
	"distripos/internal/core/tx"
	"distripos/pkg/logger"
)

// StockTotal pairs a product's stockActual with the sum of its movements.
type StockTotal struct {
	ProductID   id.ID  `db:"id"`
	SKU         string `db:"sku"`
	StockActual int64  `db:"stock_actual"`
	Ledger      int64  `db:"ledger"`
}

// BalanceTotal pairs a customer's saldoActual with Σdebits − Σcredits.
type BalanceTotal struct {
	CustomerID  id.ID           `db:"id"`
	SaldoActual decimal.Decimal `db:"saldo_actual"`
	Ledger      decimal.Decimal `db:"ledger"`
}

// Repository reads the totals compared by Run.
type Repository interface {
	ListTenantIDs(ctx context.Context) ([]id.ID, error)
	// StockTotals returns only products whose totals differ.
	StockTotals(ctx context.Context, tenantID id.ID) ([]StockTotal, error)
	// BalanceTotals returns only customers whose totals differ.
	BalanceTotals(ctx context.Context, tenantID id.ID) ([]BalanceTotal, error)
}

// StockDrift is a product whose stock disagrees with its movements.
type StockDrift struct {
	TenantID    id.ID  `json:"tenantId"`
	ProductID   id.ID  `json:"productId"`
	SKU         string `json:"sku"`
	StockActual int64  `json:"stockActual"`
	Ledger      int64  `json:"ledger"`
}

// BalanceDrift is a customer whose balance disagrees with its movements.
type BalanceDrift struct {
	TenantID    id.ID           `json:"tenantId"`
	CustomerID  id.ID           `json:"customerId"`
	SaldoActual decimal.Decimal `json:"saldoActual"`
	Ledger      decimal.Decimal `json:"ledger"`
}

// Report is the outcome of one run.
type Report struct {
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Tenants    int            `json:"tenants"`
	Stock      []StockDrift   `json:"stock"`
	Balances   []BalanceDrift `json:"balances"`
	// Failed lists tenants whose check errored; the run moves on.
	Failed []id.ID `json:"failed"`
}

// Clean reports whether no drift was found.
func (r *Report) Clean() bool {
	return len(r.Stock) == 0 && len(r.Balances) == 0 && len(r.Failed) == 0
}

type Service struct {
	repo      Repository
	txManager tx.ReadOnlyManager
	now       func() time.Time
}

// NewService creates the reconciliation job. Each tenant is read inside one
// read-only snapshot so a sale committing mid-check is never reported as drift.
func NewService(repo Repository, txManager tx.ReadOnlyManager) *Service {
	return &Service{repo: repo, txManager: txManager, now: time.Now}
}

// Run checks every tenant. It only fails when the tenant list cannot be read.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		StartedAt: s.now(),
		Stock:     []StockDrift{},
		Balances:  []BalanceDrift{},
		Failed:    []id.ID{},
	}

	tenants, err := s.repo.ListTenantIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	report.Tenants = len(tenants)

	for _, tenantID := range tenants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
			return s.checkTenant(ctx, tenantID, report)
		})
		if err != nil {
			logger.Error(ctx, "reconciliation failed", "tenant_id", tenantID, "error", err)
			report.Failed = append(report.Failed, tenantID)
		}
	}

	report.FinishedAt = s.now()
	logger.Info(ctx, "reconciliation finished",
		"tenants", report.Tenants,
		"stock_drift", len(report.Stock),
		"balance_drift", len(report.Balances),
		"failed", len(report.Failed),
	)
	return report, nil
}

func (s *Service) checkTenant(ctx context.Context, tenantID id.ID, report *Report) error {
	stock, err := s.repo.StockTotals(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("stock totals: %w", err)
	}
	for _, t := range stock {
		if t.StockActual == t.Ledger {
			continue
		}
		logger.Warn(ctx, "stock drift",
			"tenant_id", tenantID,
			"product_id", t.ProductID,
			"sku", t.SKU,
			"stock_actual", t.StockActual,
			"ledger", t.Ledger,
		)
		report.Stock = append(report.Stock, StockDrift{
			TenantID:    tenantID,
			ProductID:   t.ProductID,
			SKU:         t.SKU,
			StockActual: t.StockActual,
			Ledger:      t.Ledger,
		})
	}

	balances, err := s.repo.BalanceTotals(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("balance totals: %w", err)
	}
	for _, b := range balances {
		if b.SaldoActual.Equal(b.Ledger) {
			continue
		}
		logger.Warn(ctx, "receivable drift",
			"tenant_id", tenantID,
			"customer_id", b.CustomerID,
			"saldo_actual", b.SaldoActual.String(),
			"ledger", b.Ledger.String(),
		)
		report.Balances = append(report.Balances, BalanceDrift{
			TenantID:    tenantID,
			CustomerID:  b.CustomerID,
			SaldoActual: b.SaldoActual,
			Ledger:      b.Ledger,
		})
	}
	return nil
}
