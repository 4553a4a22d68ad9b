package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distripos/internal/core/apperror"
	"distripos/internal/core/security"
	"distripos/internal/core/tenant"
	"distripos/internal/domain/auth"
	"distripos/internal/infrastructure/storage/memory"
)

const password = "correcto-123"

func register(t *testing.T, svc *memory.Services, email string) *auth.Registration {
	t.Helper()
	reg, err := svc.Auth.RegisterTenant(context.Background(), tenant.Registration{
		Empresa:       "Repuestos Oeste",
		CUIT:          "20-11111111-2",
		AdminEmail:    email,
		AdminPassword: password,
	})
	require.NoError(t, err)
	return reg
}

func adminCtx(reg *auth.Registration) context.Context {
	return memory.AsUser(context.Background(), reg.Tenant.ID, reg.Admin.ID, memory.Legacy(security.LegacySuperAdmin))
}

func TestRegisterTenant(t *testing.T) {
	svc := memory.NewServices()
	reg := register(t, svc, "  Admin@Oeste.test ")

	assert.Equal(t, tenant.StatusActive, reg.Tenant.Status)
	assert.Equal(t, "admin@oeste.test", reg.Admin.Email)
	assert.Equal(t, security.LegacySuperAdmin, reg.Admin.LegacyRole)
	assert.Equal(t, "Administrador", reg.Admin.Nombre)
	assert.True(t, tenant.DefaultAlicuotaIIBB.Equal(reg.Company.AlicuotaIIBB))
	assert.NotEqual(t, password, reg.Admin.PasswordHash)

	_, err := svc.Auth.RegisterTenant(context.Background(), tenant.Registration{
		Empresa: "Otra", AdminEmail: "admin@oeste.test", AdminPassword: password,
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate), "emails are unique across tenants")
}

func TestRegisterTenantValidation(t *testing.T) {
	svc := memory.NewServices()
	tests := []struct {
		name string
		req  tenant.Registration
	}{
		{"no company", tenant.Registration{AdminEmail: "a@b.test", AdminPassword: password}},
		{"bad email", tenant.Registration{Empresa: "X", AdminEmail: "nope", AdminPassword: password}},
		{"short password", tenant.Registration{Empresa: "X", AdminEmail: "a@b.test", AdminPassword: "corta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Auth.RegisterTenant(context.Background(), tt.req)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestLoginIssuesUsableToken(t *testing.T) {
	svc := memory.NewServices()
	reg := register(t, svc, "admin@oeste.test")

	tokens, user, err := svc.Auth.Login(context.Background(), auth.Credentials{Email: "ADMIN@oeste.test", Password: password})
	require.NoError(t, err)
	assert.Equal(t, reg.Admin.ID, user.ID)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.NotEmpty(t, tokens.RefreshToken)

	claims, err := svc.JWT.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.Tenant.ID, claims.TenantID)
	assert.Equal(t, security.LegacySuperAdmin, claims.RoleName)
	assert.Contains(t, claims.Permissions, security.AdminAll)
	assert.NotEmpty(t, claims.SessionID)
}

func TestLoginFailures(t *testing.T) {
	svc := memory.NewServices()
	register(t, svc, "admin@oeste.test")

	_, _, err := svc.Auth.Login(context.Background(), auth.Credentials{Email: "nadie@oeste.test", Password: password})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))

	_, _, err = svc.Auth.Login(context.Background(), auth.Credentials{Email: "admin@oeste.test", Password: "incorrecta"})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestLoginLockout(t *testing.T) {
	svc := memory.NewServices()
	register(t, svc, "admin@oeste.test")
	ctx := context.Background()

	for range auth.DefaultServiceConfig().MaxLoginAttempts {
		_, _, err := svc.Auth.Login(ctx, auth.Credentials{Email: "admin@oeste.test", Password: "incorrecta"})
		require.Error(t, err)
	}

	_, _, err := svc.Auth.Login(ctx, auth.Credentials{Email: "admin@oeste.test", Password: password})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden), "locked accounts refuse even the right password")
}

func TestLoginSuspendedTenant(t *testing.T) {
	svc := memory.NewServices()
	reg := register(t, svc, "admin@oeste.test")
	svc.Store.Tenants().SetStatus(reg.Tenant.ID, tenant.StatusSuspended)

	_, _, err := svc.Auth.Login(context.Background(), auth.Credentials{Email: "admin@oeste.test", Password: password})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
}

func TestRefreshRotatesToken(t *testing.T) {
	svc := memory.NewServices()
	register(t, svc, "admin@oeste.test")
	tokens, _, err := svc.Auth.Login(context.Background(), auth.Credentials{Email: "admin@oeste.test", Password: password})
	require.NoError(t, err)

	next, err := svc.Auth.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, next.RefreshToken)

	_, err = svc.Auth.Refresh(context.Background(), tokens.RefreshToken)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized), "a used token is revoked")

	_, err = svc.Auth.Refresh(context.Background(), "basura")
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestLogoutRevokesRefreshTokens(t *testing.T) {
	svc := memory.NewServices()
	reg := register(t, svc, "admin@oeste.test")
	tokens, _, err := svc.Auth.Login(context.Background(), auth.Credentials{Email: "admin@oeste.test", Password: password})
	require.NoError(t, err)

	require.NoError(t, svc.Auth.Logout(adminCtx(reg)))
	_, err = svc.Auth.Refresh(context.Background(), tokens.RefreshToken)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestDynamicRoleLifecycle(t *testing.T) {
	svc := memory.NewServices()
	reg := register(t, svc, "admin@oeste.test")
	ctx := adminCtx(reg)

	role, err := svc.Auth.CreateRole(ctx, auth.RoleInput{
		Name:        "Cajero",
		Permissions: []string{security.SalesAccess, security.SalesCharge, security.SalesCharge},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{security.SalesAccess, security.SalesCharge}, role.Permissions)

	_, err = svc.Auth.CreateRole(ctx, auth.RoleInput{Name: "Roto", Permissions: []string{"nope:x"}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.Auth.CreateRole(ctx, auth.RoleInput{Name: "Cajero", Permissions: []string{security.SalesAccess}})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	user, err := svc.Auth.CreateUser(ctx, auth.CreateUserInput{
		Email: "caja@oeste.test", Nombre: "Caja 1", Password: password, RoleID: &role.ID,
	})
	require.NoError(t, err)

	tokens, _, err := svc.Auth.Login(context.Background(), auth.Credentials{Email: user.Email, Password: password})
	require.NoError(t, err)
	claims, err := svc.JWT.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "Cajero", claims.RoleName)
	assert.ElementsMatch(t, []string{security.SalesAccess, security.SalesCharge}, claims.Permissions)

	_, err = svc.Auth.UpdateRole(ctx, role.ID, auth.RoleInput{
		Name:        "Cajero",
		Permissions: []string{security.SalesAccess, security.SalesCharge, security.CashOpen},
	})
	require.NoError(t, err)
	refreshed, err := svc.Auth.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	claims, err = svc.JWT.ValidateToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Contains(t, claims.Permissions, security.CashOpen, "refresh picks up role changes")

	err = svc.Auth.DeleteRole(ctx, role.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict), "role in use")

	roles, err := svc.Auth.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestDeleteUnusedRole(t *testing.T) {
	svc := memory.NewServices()
	reg := register(t, svc, "admin@oeste.test")
	ctx := adminCtx(reg)

	role, err := svc.Auth.CreateRole(ctx, auth.RoleInput{Name: "Temporal", Permissions: []string{security.StockView}})
	require.NoError(t, err)
	require.NoError(t, svc.Auth.DeleteRole(ctx, role.ID))

	err = svc.Auth.DeleteRole(ctx, role.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreateUserRules(t *testing.T) {
	svc := memory.NewServices()
	reg := register(t, svc, "admin@oeste.test")
	super := adminCtx(reg)
	admin := memory.As(context.Background(), reg.Tenant.ID, memory.Legacy(security.LegacyAdmin))

	_, err := svc.Auth.CreateUser(admin, auth.CreateUserInput{
		Email: "otro@oeste.test", Nombre: "Otro", Password: password, LegacyRole: security.LegacySuperAdmin,
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	_, err = svc.Auth.CreateUser(super, auth.CreateUserInput{
		Email: "otro@oeste.test", Nombre: "Otro", Password: password, LegacyRole: security.LegacySuperAdmin,
	})
	assert.NoError(t, err)

	_, err = svc.Auth.CreateUser(admin, auth.CreateUserInput{
		Email: "vend@oeste.test", Nombre: "Vendedor", Password: password, LegacyRole: "vendedor",
	})
	assert.NoError(t, err, "legacy names are case-insensitive")

	_, err = svc.Auth.CreateUser(admin, auth.CreateUserInput{
		Email: "sinrol@oeste.test", Nombre: "Sin rol", Password: password,
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	missing := reg.Tenant.ID
	_, err = svc.Auth.CreateUser(admin, auth.CreateUserInput{
		Email: "fantasma@oeste.test", Nombre: "Fantasma", Password: password, RoleID: &missing,
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidReference))

	seller := memory.As(context.Background(), reg.Tenant.ID, memory.Legacy(security.LegacyVendedor))
	_, err = svc.Auth.CreateUser(seller, auth.CreateUserInput{
		Email: "x@oeste.test", Nombre: "X", Password: password, LegacyRole: security.LegacyVendedor,
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	users, total, err := svc.Auth.ListUsers(admin, auth.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, users, 3)
}
