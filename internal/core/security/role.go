package security

import (
	"fmt"
	"slices"

	appctx "distripos/internal/core/context"
	"distripos/internal/core/id"
)

// Legacy role names stored on users created before dynamic roles existed.
const (
	LegacySuperAdmin     = "SUPER_ADMIN"
	LegacyAdmin          = "ADMIN"
	LegacyAdministrativo = "ADMINISTRATIVO"
	LegacyVendedor       = "VENDEDOR"
)

// Role is either LegacyRole or DynamicRole. It is resolved once at login
// into a flat capability list; nothing downstream branches on the variant
// except the sale allow-list.
type Role interface {
	// Kind is appctx.RoleKindLegacy or appctx.RoleKindDynamic.
	Kind() string
	// Name is the legacy role name or the dynamic role's display name.
	Name() string
	// Capabilities returns the flattened capability keys.
	Capabilities() []string
}

// LegacyRole is a fixed role identified by name.
type LegacyRole struct {
	RoleName string
}

// DynamicRole is a tenant-defined role with an explicit permission set.
type DynamicRole struct {
	ID          id.ID
	RoleName    string
	Permissions []string
}

var legacyDefaults = map[string][]string{
	LegacySuperAdmin: {AdminAll},
	LegacyAdmin:      {AdminAll},
	LegacyAdministrativo: {
		StockView, ProductCreate, ProductEdit, StockAdjust, ReportsView,
		SalesAccess, SalesCharge, SalesVoid,
		CashView, CashOpen, CashMovement,
		CustomerView, CustomerEdit, CustomerAccount,
		AccountingView, AccountingRecord,
	},
	LegacyVendedor: {
		StockView, SalesAccess, SalesCharge,
		CashView, CashOpen, CashMovement, CustomerView,
	},
}

// IsLegacyName reports whether name is one of the fixed legacy roles.
func IsLegacyName(name string) bool {
	_, ok := legacyDefaults[name]
	return ok
}

func (r LegacyRole) Kind() string { return appctx.RoleKindLegacy }
func (r LegacyRole) Name() string { return r.RoleName }

func (r LegacyRole) Capabilities() []string {
	return slices.Clone(legacyDefaults[r.RoleName])
}

func (r DynamicRole) Kind() string { return appctx.RoleKindDynamic }
func (r DynamicRole) Name() string { return r.RoleName }

func (r DynamicRole) Capabilities() []string {
	out := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		if IsKnown(p) && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// ResolveRole picks the variant for a stored user: a SUPER_ADMIN legacy role
// wins over an assigned dynamic role; otherwise the dynamic role wins.
func ResolveRole(legacyName string, dynamic *DynamicRole) (Role, error) {
	if legacyName == LegacySuperAdmin {
		return LegacyRole{RoleName: legacyName}, nil
	}
	if dynamic != nil {
		return *dynamic, nil
	}
	if !IsLegacyName(legacyName) {
		return nil, fmt.Errorf("unknown legacy role %q", legacyName)
	}
	return LegacyRole{RoleName: legacyName}, nil
}

// ValidatePermissions returns the first key not present in the catalog.
func ValidatePermissions(keys []string) error {
	for _, k := range keys {
		if !IsKnown(k) {
			return fmt.Errorf("unknown permission %q", k)
		}
	}
	return nil
}
