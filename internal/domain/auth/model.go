// Package auth provides authentication, tenant registration and role
// management.
package auth

import (
	"strings"
	"time"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/core/tenant"
)

// User is a login of one tenant. Exactly one of LegacyRole and RoleID is
// normally set; a SUPER_ADMIN legacy role wins over an assigned RoleID.
type User struct {
	ID                  id.ID      `db:"id" json:"id"`
	TenantID            id.ID      `db:"tenant_id" json:"-"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	Nombre              string     `db:"nombre" json:"nombre"`
	LegacyRole          string     `db:"legacy_role" json:"legacyRole,omitempty"`
	RoleID              *id.ID     `db:"role_id" json:"roleId,omitempty"`
	IsActive            bool       `db:"is_active" json:"isActive"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time `db:"locked_until" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updatedAt"`
}

// NewUser creates an active user.
func NewUser(tenantID id.ID, email, nombre, passwordHash string, now time.Time) *User {
	return &User{
		ID:           id.New(),
		TenantID:     tenantID,
		Email:        NormalizeEmail(email),
		Nombre:       strings.TrimSpace(nombre),
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsLocked returns true if the account is locked at now.
func (u *User) IsLocked(now time.Time) bool {
	if u.LockedUntil == nil {
		return false
	}
	return now.Before(*u.LockedUntil)
}

// CanLogin checks if user can login.
func (u *User) CanLogin(now time.Time) error {
	if !u.IsActive {
		return apperror.NewForbidden("account is disabled")
	}
	if u.IsLocked(now) {
		return apperror.NewForbidden("account is temporarily locked").
			WithDetail("locked_until", u.LockedUntil.UTC())
	}
	return nil
}

// RecordFailedLogin increments the failure counter and locks the account once
// maxAttempts is reached.
func (u *User) RecordFailedLogin(maxAttempts int, lockDuration time.Duration, now time.Time) {
	// an expired lock starts a fresh count
	if u.LockedUntil != nil && !now.Before(*u.LockedUntil) {
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		lockUntil := now.Add(lockDuration)
		u.LockedUntil = &lockUntil
	}
	u.UpdatedAt = now
}

// RecordSuccessfulLogin resets failed login counter.
func (u *User) RecordSuccessfulLogin(now time.Time) {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// Role is a tenant-defined permission set. System roles cannot be edited.
type Role struct {
	ID          id.ID     `db:"id" json:"id"`
	TenantID    id.ID     `db:"tenant_id" json:"-"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Permissions []string  `db:"permissions" json:"permissions"`
	IsSystem    bool      `db:"is_system" json:"isSystem"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Dynamic converts the stored role into its security variant.
func (r *Role) Dynamic() *security.DynamicRole {
	return &security.DynamicRole{ID: r.ID, RoleName: r.Name, Permissions: r.Permissions}
}

// RoleInput is the payload of CreateRole and UpdateRole.
type RoleInput struct {
	Name        string
	Description string
	Permissions []string
}

func (in *RoleInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if len(in.Name) > 100 {
		return apperror.NewValidation("name is too long").WithDetail("field", "name")
	}
	if len(in.Permissions) == 0 {
		return apperror.NewValidation("at least one permission is required").WithDetail("field", "permissions")
	}
	if err := security.ValidatePermissions(in.Permissions); err != nil {
		return apperror.NewValidation(err.Error()).WithDetail("field", "permissions")
	}
	return nil
}

// RefreshToken is stored hashed; the raw value only leaves the service once.
type RefreshToken struct {
	ID            id.ID      `db:"id"`
	UserID        id.ID      `db:"user_id"`
	TenantID      id.ID      `db:"tenant_id"`
	TokenHash     string     `db:"token_hash"`
	ExpiresAt     time.Time  `db:"expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
	RevokedAt     *time.Time `db:"revoked_at"`
	RevokedReason *string    `db:"revoked_reason"`
}

// IsValid checks if refresh token is usable at now.
func (t *RefreshToken) IsValid(now time.Time) bool {
	if t.RevokedAt != nil {
		return false
	}
	return now.Before(t.ExpiresAt)
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TokenType    string    `json:"tokenType"`
}

// Credentials for login.
type Credentials struct {
	Email    string
	Password string
}

// CreateUserInput creates a user with either a legacy role or a tenant role.
type CreateUserInput struct {
	Email      string
	Nombre     string
	Password   string
	LegacyRole string
	RoleID     *id.ID
}

// UserFilter for listing users.
type UserFilter struct {
	Search string
	Limit  int
	Offset int
}

// Registration is the outcome of RegisterTenant.
type Registration struct {
	Tenant  *tenant.Tenant        `json:"tenant"`
	Company *tenant.CompanyConfig `json:"company"`
	Admin   *User                 `json:"admin"`
}

// NormalizeEmail lowercases and trims.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
