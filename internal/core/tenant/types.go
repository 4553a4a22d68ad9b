// Package tenant describes the isolated business accounts. Isolation is row
// level: every table carries tenant_id and every query filters by it.
package tenant

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
)

// Status represents tenant lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Tenant is a business account.
type Tenant struct {
	ID        id.ID     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

func (t *Tenant) IsActive() bool {
	return t.Status == StatusActive
}

// CompanyConfig holds fiscal data and the rates used by accounting estimates.
type CompanyConfig struct {
	TenantID          id.ID           `db:"tenant_id" json:"tenantId"`
	RazonSocial       string          `db:"razon_social" json:"razonSocial"`
	CUIT              string          `db:"cuit" json:"cuit"`
	Direccion         string          `db:"direccion" json:"direccion"`
	AlicuotaIIBB      decimal.Decimal `db:"alicuota_iibb" json:"alicuotaIIBB"`
	AlicuotaLeyCheque decimal.Decimal `db:"alicuota_ley_cheque" json:"alicuotaLeyCheque"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updatedAt"`
}

// Default rates for a new company.
var (
	DefaultAlicuotaIIBB      = decimal.RequireFromString("3.5")
	DefaultAlicuotaLeyCheque = decimal.RequireFromString("0.6")
)

// Registration is the input for bootstrapping a tenant with its first user.
type Registration struct {
	Empresa       string
	CUIT          string
	AdminEmail    string
	AdminNombre   string
	AdminPassword string
}

// Validate checks the registration input.
func (r *Registration) Validate() error {
	r.Empresa = strings.TrimSpace(r.Empresa)
	r.AdminEmail = strings.ToLower(strings.TrimSpace(r.AdminEmail))
	if r.Empresa == "" {
		return apperror.NewValidation("company name is required")
	}
	if !strings.Contains(r.AdminEmail, "@") {
		return apperror.NewValidation("a valid admin email is required")
	}
	if len(r.AdminPassword) < 8 {
		return apperror.NewValidation("password must be at least 8 characters")
	}
	return nil
}
