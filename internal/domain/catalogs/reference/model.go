// Package reference resolves the free-text names products point at (brand,
// model, provider, category) to tenant-scoped rows.
package reference

import (
	"strings"
	"time"

	"distripos/internal/core/entity"
	"distripos/internal/core/id"
)

// Kind selects the reference table.
type Kind string

const (
	KindBrand    Kind = "MARCA"
	KindModel    Kind = "MODELO"
	KindProvider Kind = "PROVEEDOR"
	KindCategory Kind = "CATEGORIA"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindBrand, KindModel, KindProvider, KindCategory:
		return true
	}
	return false
}

// Reference is a named row of one kind. Names are unique per tenant and kind,
// compared case-insensitively.
type Reference struct {
	entity.TenantEntity

	Kind      Kind      `db:"kind" json:"kind"`
	Nombre    string    `db:"nombre" json:"nombre"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewReference builds a reference with a fresh id.
func NewReference(tenantID id.ID, kind Kind, nombre string) *Reference {
	return &Reference{
		TenantEntity: entity.NewTenantEntity(tenantID),
		Kind:         kind,
		Nombre:       CleanName(nombre),
	}
}

// CleanName trims and collapses inner whitespace.
func CleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
