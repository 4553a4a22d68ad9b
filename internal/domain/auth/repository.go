package auth

import (
	"context"
	"time"

	"distripos/internal/core/id"
	"distripos/internal/core/tenant"
)

// TenantRepository stores tenants and their company configuration.
type TenantRepository interface {
	Create(ctx context.Context, t *tenant.Tenant) error
	GetByID(ctx context.Context, tenantID id.ID) (*tenant.Tenant, error)
	CreateCompanyConfig(ctx context.Context, cfg *tenant.CompanyConfig) error
}

// UserRepository defines user storage operations.
type UserRepository interface {
	// Create fails with Duplicate when the email is taken. Emails are unique
	// across tenants because login does not name a tenant.
	Create(ctx context.Context, user *User) error

	GetByID(ctx context.Context, tenantID, userID id.ID) (*User, error)

	// GetByEmail looks the user up across tenants.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateLoginState writes the lockout counters and last login.
	UpdateLoginState(ctx context.Context, user *User) error

	List(ctx context.Context, tenantID id.ID, filter UserFilter) ([]User, int, error)

	// CountWithRole counts users assigned to roleID.
	CountWithRole(ctx context.Context, tenantID, roleID id.ID) (int, error)
}

// RoleRepository defines role storage operations.
type RoleRepository interface {
	// Create fails with Duplicate when the name is taken in the tenant.
	Create(ctx context.Context, role *Role) error
	GetByID(ctx context.Context, tenantID, roleID id.ID) (*Role, error)
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, tenantID, roleID id.ID) error
	List(ctx context.Context, tenantID id.ID) ([]Role, error)
}

// TokenRepository defines token storage operations.
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error
	RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error
	// CleanupExpiredTokens removes tokens expired before the given instant.
	CleanupExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}
