package sale

import (
	"context"
	"time"

	"distripos/internal/core/id"
	"distripos/internal/domain"
)

// Repository defines storage for sales.
type Repository interface {
	// Create inserts the header and its lines. A reused idempotency key fails
	// with a Duplicate error on field "idempotency_key".
	Create(ctx context.Context, s *Sale) error

	// GetByID returns the sale with its lines and product names.
	GetByID(ctx context.Context, tenantID, saleID id.ID) (*Sale, error)

	// GetByIdempotencyKey returns NotFound when the key is unused.
	GetByIdempotencyKey(ctx context.Context, tenantID id.ID, key string) (*Sale, error)

	// LockForVoid reads the sale with its lines under a row lock.
	LockForVoid(ctx context.Context, tenantID, saleID id.ID) (*Sale, error)

	// MarkVoided sets estado ANULADA while the sale is still COMPLETADA and
	// reports whether it did.
	MarkVoided(ctx context.Context, tenantID, saleID id.ID, reason string, at time.Time) (bool, error)

	// List returns headers newest first.
	List(ctx context.Context, tenantID id.ID, filter ListFilter) (domain.ListResult[*Sale], error)
}

// Numberer issues sale numbers inside the registering transaction.
type Numberer interface {
	NextSaleNumber(ctx context.Context, tenantID id.ID, at time.Time) (string, error)
}
