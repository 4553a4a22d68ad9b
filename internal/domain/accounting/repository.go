package accounting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/id"
	"distripos/internal/core/tenant"
)

// Repository persists expenses and tax movements.
type Repository interface {
	InsertExpense(ctx context.Context, e *Expense) error
	InsertTaxMovement(ctx context.Context, m *TaxMovement) error

	// InvoicedTotal sums COMPLETADA sales with fecha in [from, to).
	InvoicedTotal(ctx context.Context, tenantID id.ID, from, to time.Time) (decimal.Decimal, error)
	ExpenseTotal(ctx context.Context, tenantID id.ID, from, to time.Time) (decimal.Decimal, error)
	ListTaxMovements(ctx context.Context, tenantID id.ID, from, to time.Time) ([]TaxMovement, error)
	RecentExpenses(ctx context.Context, tenantID id.ID, limit int) ([]Expense, error)

	// GetCompanyConfig returns nil, nil when the tenant has none.
	GetCompanyConfig(ctx context.Context, tenantID id.ID) (*tenant.CompanyConfig, error)
}
