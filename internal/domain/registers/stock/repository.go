package stock

import (
	"context"

	"distripos/internal/core/id"
)

// Repository is the storage contract of the stock ledger. Decrement and
// Increment are single conditional statements; callers never read-modify-write
// stockActual.
type Repository interface {
	// Decrement subtracts qty only while stock_actual >= qty. It reports false
	// when no row matched (insufficient stock or unknown product).
	Decrement(ctx context.Context, tenantID, productID id.ID, qty int64) (bool, error)

	// Increment adds qty. It reports false when the product does not exist.
	Increment(ctx context.Context, tenantID, productID id.ID, qty int64) (bool, error)

	// CurrentStock returns stock_actual or a NotFound error.
	CurrentStock(ctx context.Context, tenantID, productID id.ID) (int64, error)

	InsertMovements(ctx context.Context, movements []Movement) error

	// ListByProduct returns movements newest first.
	ListByProduct(ctx context.Context, tenantID, productID id.ID, limit int) ([]Movement, error)
}
