// Package entity holds the fields shared by every tenant-owned row.
package entity

import (
	"context"
	"time"

	"distripos/internal/core/id"
)

// Validatable is implemented by entities that check their own invariants
// without database access.
type Validatable interface {
	Validate(ctx context.Context) error
}

// TenantEntity is embedded by every tenant-owned row. Repositories always
// filter by TenantID.
type TenantEntity struct {
	ID       id.ID `db:"id" json:"id"`
	TenantID id.ID `db:"tenant_id" json:"-"`
}

// NewTenantEntity returns a base with a fresh id.
func NewTenantEntity(tenantID id.ID) TenantEntity {
	return TenantEntity{ID: id.New(), TenantID: tenantID}
}

// BelongsTo reports whether the row is owned by tenantID.
func (e TenantEntity) BelongsTo(tenantID id.ID) bool {
	return e.TenantID == tenantID
}

// Timestamps are maintained by repositories on insert and update.
type Timestamps struct {
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Touch sets UpdatedAt, and CreatedAt when still zero.
func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}
