package customer

import (
	"context"

	"distripos/internal/core/id"
	"distripos/internal/domain"
)

// Repository defines storage for customers.
type Repository interface {
	Create(ctx context.Context, c *Customer) error

	// Update writes every column except saldo_actual.
	Update(ctx context.Context, c *Customer) error

	GetByID(ctx context.Context, tenantID, customerID id.ID) (*Customer, error)
	List(ctx context.Context, tenantID id.ID, filter domain.ListFilter) (domain.ListResult[*Customer], error)
	Delete(ctx context.Context, tenantID, customerID id.ID) error
}
