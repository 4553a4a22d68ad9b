package receivable

import (
	"context"

	"github.com/shopspring/decimal"

	"distripos/internal/core/id"
)

// Repository is the storage contract of the receivable ledger.
type Repository interface {
	// GetAccount returns NotFound for unknown or foreign customers.
	GetAccount(ctx context.Context, tenantID, customerID id.ID) (*Account, error)

	// AdjustBalance adds delta to saldo_actual atomically and returns the new balance.
	AdjustBalance(ctx context.Context, tenantID, customerID id.ID, delta decimal.Decimal) (decimal.Decimal, error)

	InsertMovement(ctx context.Context, m *Movement) error

	// ListMovements returns movements newest first.
	ListMovements(ctx context.Context, tenantID, customerID id.ID, limit int) ([]Movement, error)
}
