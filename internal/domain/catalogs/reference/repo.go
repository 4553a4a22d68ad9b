package reference

import (
	"context"

	"distripos/internal/core/id"
)

// Repository defines storage for reference names.
type Repository interface {
	// FindByName matches case-insensitively and returns NotFound when absent.
	FindByName(ctx context.Context, tenantID id.ID, kind Kind, nombre string) (*Reference, error)

	// Create fails with a Duplicate error when the name already exists. It must
	// not abort the surrounding transaction on that conflict.
	Create(ctx context.Context, ref *Reference) error

	List(ctx context.Context, tenantID id.ID, kind Kind) ([]*Reference, error)
	Delete(ctx context.Context, tenantID id.ID, kind Kind, refID id.ID) error

	// InUse reports whether any product points at the reference.
	InUse(ctx context.Context, tenantID id.ID, kind Kind, refID id.ID) (bool, error)
}
