package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/core/apperror"
	appctx "distripos/internal/core/context"
	"distripos/internal/core/id"
)

func TestHasPermission_AdminOverride(t *testing.T) {
	assert.True(t, HasPermission([]string{AdminAll}, CashOpen))
	assert.True(t, HasPermission([]string{CashOpen}, CashOpen))
	assert.False(t, HasPermission([]string{CashView}, CashOpen))
	assert.False(t, HasPermission(nil, CashOpen))
}

func TestResolveRole(t *testing.T) {
	dyn := &DynamicRole{ID: id.New(), RoleName: "Cajero", Permissions: []string{SalesCharge, "bogus", SalesCharge}}

	r, err := ResolveRole(LegacySuperAdmin, dyn)
	require.NoError(t, err)
	assert.Equal(t, appctx.RoleKindLegacy, r.Kind())
	assert.Equal(t, []string{AdminAll}, r.Capabilities())

	r, err = ResolveRole(LegacyVendedor, dyn)
	require.NoError(t, err)
	assert.Equal(t, appctx.RoleKindDynamic, r.Kind())
	assert.Equal(t, []string{SalesCharge}, r.Capabilities())

	r, err = ResolveRole(LegacyAdmin, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{AdminAll}, r.Capabilities())

	_, err = ResolveRole("CONTADOR", nil)
	assert.Error(t, err)
}

func TestLegacyCapabilitiesAreCopies(t *testing.T) {
	caps := LegacyRole{RoleName: LegacyVendedor}.Capabilities()
	caps[0] = "mutated"
	assert.NotEqual(t, "mutated", LegacyRole{RoleName: LegacyVendedor}.Capabilities()[0])
}

func TestAccessScope_RequireLegacyRoleOr(t *testing.T) {
	allowed := []string{LegacyAdmin, LegacyAdministrativo, LegacyVendedor}

	tests := []struct {
		name    string
		kind    string
		role    string
		perms   []string
		wantErr bool
	}{
		{"super admin bypass", appctx.RoleKindLegacy, LegacySuperAdmin, nil, false},
		{"vendedor allowed", appctx.RoleKindLegacy, LegacyVendedor, nil, false},
		{"unknown legacy denied", appctx.RoleKindLegacy, "INVITADO", []string{AdminAll}, true},
		{"dynamic with capability", appctx.RoleKindDynamic, "Cajero", []string{SalesCharge}, false},
		{"dynamic with admin all", appctx.RoleKindDynamic, "Dueño", []string{AdminAll}, false},
		{"dynamic without capability", appctx.RoleKindDynamic, "Depósito", []string{StockView}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScope(id.New(), id.New(), tt.kind, tt.role, tt.perms)
			err := s.RequireLegacyRoleOr(SalesCharge, allowed...)
			if tt.wantErr {
				assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAccessScope_Require(t *testing.T) {
	s := NewScope(id.New(), id.New(), appctx.RoleKindDynamic, "x", []string{CashView})
	assert.NoError(t, s.Require(CashView))
	err := s.Require(CashOpen)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, CashOpen, appErr.Details["permission"])
}

func TestValidatePermissions(t *testing.T) {
	assert.NoError(t, ValidatePermissions([]string{SalesVoid, AdminAll}))
	assert.Error(t, ValidatePermissions([]string{"vta:todo"}))
}
