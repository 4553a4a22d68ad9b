package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"distripos/internal/core/apperror"
	appctx "distripos/internal/core/context"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/core/tenant"
	"distripos/internal/core/tx"
	"distripos/internal/domain/audit"
	"distripos/pkg/logger"
)

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	MaxLoginAttempts   int
	LockDuration       time.Duration
	PasswordMinLength  int
	RefreshTokenExpiry time.Duration
	BcryptCost         int
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxLoginAttempts:   5,
		LockDuration:       15 * time.Minute,
		PasswordMinLength:  8,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		BcryptCost:         bcrypt.DefaultCost,
	}
}

// Repositories groups the stores used by Service.
type Repositories struct {
	Tenants TenantRepository
	Users   UserRepository
	Roles   RoleRepository
	Tokens  TokenRepository
}

// Service provides authentication and authorization logic.
type Service struct {
	tenants   TenantRepository
	users     UserRepository
	roles     RoleRepository
	tokens    TokenRepository
	txManager tx.Manager
	jwt       *JWTService
	audit     audit.Recorder
	config    ServiceConfig
	now       func() time.Time
}

// NewService creates a new auth service. recorder may be nil.
func NewService(repos Repositories, txManager tx.Manager, jwtService *JWTService, recorder audit.Recorder, config ServiceConfig) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		tenants:   repos.Tenants,
		users:     repos.Users,
		roles:     repos.Roles,
		tokens:    repos.Tokens,
		txManager: txManager,
		jwt:       jwtService,
		audit:     recorder,
		config:    config,
		now:       time.Now,
	}
}

// RegisterTenant creates the tenant, its company configuration and a
// SUPER_ADMIN user in one transaction. It requires no authentication.
func (s *Service) RegisterTenant(ctx context.Context, req tenant.Registration) (*Registration, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkPassword(req.AdminPassword); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(req.AdminPassword)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := &tenant.Tenant{
		ID:        id.New(),
		Name:      req.Empresa,
		Status:    tenant.StatusActive,
		CreatedAt: now,
	}
	company := &tenant.CompanyConfig{
		TenantID:          t.ID,
		RazonSocial:       req.Empresa,
		CUIT:              strings.TrimSpace(req.CUIT),
		AlicuotaIIBB:      tenant.DefaultAlicuotaIIBB,
		AlicuotaLeyCheque: tenant.DefaultAlicuotaLeyCheque,
		UpdatedAt:         now,
	}
	nombre := req.AdminNombre
	if strings.TrimSpace(nombre) == "" {
		nombre = "Administrador"
	}
	admin := NewUser(t.ID, req.AdminEmail, nombre, hash, now)
	admin.LegacyRole = security.LegacySuperAdmin

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.tenants.Create(ctx, t); err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}
		if err := s.tenants.CreateCompanyConfig(ctx, company); err != nil {
			return fmt.Errorf("create company config: %w", err)
		}
		return s.users.Create(ctx, admin)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "tenant registered",
		"tenant_id", t.ID,
		"admin_id", admin.ID,
	)
	return &Registration{Tenant: t, Company: company, Admin: admin}, nil
}

// Login authenticates by email and returns tokens. Five consecutive
// failures lock the account for the configured duration.
func (s *Service) Login(ctx context.Context, creds Credentials) (*TokenPair, *User, error) {
	now := s.now()

	user, err := s.users.GetByEmail(ctx, NormalizeEmail(creds.Email))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, nil, err
	}
	if err := user.CanLogin(now); err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		user.RecordFailedLogin(s.config.MaxLoginAttempts, s.config.LockDuration, now)
		if err := s.users.UpdateLoginState(ctx, user); err != nil {
			logger.Error(ctx, "failed to record login failure", "user_id", user.ID, "error", err)
		}
		if user.IsLocked(now) {
			logger.Warn(ctx, "account locked after failed logins",
				"user_id", user.ID,
				"attempts", user.FailedLoginAttempts,
			)
		}
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}

	if err := s.checkTenant(ctx, user.TenantID); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	user.RecordSuccessfulLogin(now)
	if err := s.users.UpdateLoginState(ctx, user); err != nil {
		logger.Warn(ctx, "failed to record login", "user_id", user.ID, "error", err)
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID, "tenant_id", user.TenantID)
	return tokens, user, nil
}

// Refresh rotates a refresh token. The role is resolved again so permission
// changes take effect.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.tokens.GetRefreshToken(ctx, hashToken(refreshToken))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("invalid refresh token")
		}
		return nil, err
	}
	if !token.IsValid(s.now()) {
		return nil, apperror.NewUnauthorized("refresh token expired or revoked")
	}

	user, err := s.users.GetByID(ctx, token.TenantID, token.UserID)
	if err != nil {
		return nil, apperror.NewUnauthorized("user not found")
	}
	if err := user.CanLogin(s.now()); err != nil {
		return nil, err
	}
	if err := s.checkTenant(ctx, user.TenantID); err != nil {
		return nil, err
	}

	if err := s.tokens.RevokeRefreshToken(ctx, token.ID, "refreshed"); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	return s.issue(ctx, user)
}

// Logout revokes every refresh token of the calling user.
func (s *Service) Logout(ctx context.Context) error {
	scope, err := security.Authorize(ctx, "")
	if err != nil {
		return err
	}
	if err := s.tokens.RevokeAllUserTokens(ctx, scope.UserID, "logout"); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	logger.Info(ctx, "user logged out", "user_id", scope.UserID)
	return nil
}

// ListRoles lists the tenant's roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	scope, err := security.Authorize(ctx, security.ConfigUsers)
	if err != nil {
		return nil, err
	}
	roles, err := s.roles.List(ctx, scope.TenantID)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []Role{}
	}
	return roles, nil
}

// CreateRole creates a tenant role. Permissions must come from the catalog.
func (s *Service) CreateRole(ctx context.Context, in RoleInput) (*Role, error) {
	scope, err := security.Authorize(ctx, security.ConfigUsers)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	role := &Role{
		ID:          id.New(),
		TenantID:    scope.TenantID,
		Name:        in.Name,
		Description: in.Description,
		Permissions: dedupe(in.Permissions),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.roles.Create(ctx, role); err != nil {
			return err
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: "role",
			EntityID:   role.ID,
			Action:     audit.ActionCreate,
			Changes:    map[string]any{"name": role.Name, "permissions": role.Permissions},
		})
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateRole replaces name, description and permissions of a tenant role.
func (s *Service) UpdateRole(ctx context.Context, roleID id.ID, in RoleInput) (*Role, error) {
	scope, err := security.Authorize(ctx, security.ConfigUsers)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var role *Role
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.roles.GetByID(ctx, scope.TenantID, roleID)
		if err != nil {
			return err
		}
		if current.IsSystem {
			return apperror.NewConflict("system roles cannot be modified").WithDetail("role_id", roleID)
		}

		before := current.Permissions
		current.Name = in.Name
		current.Description = in.Description
		current.Permissions = dedupe(in.Permissions)
		current.UpdatedAt = s.now()
		if err := s.roles.Update(ctx, current); err != nil {
			return err
		}
		role = current
		return s.audit.Record(ctx, audit.Entry{
			EntityType: "role",
			EntityID:   role.ID,
			Action:     audit.ActionUpdate,
			Changes:    map[string]any{"before": before, "after": role.Permissions},
		})
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// DeleteRole removes a tenant role that no user holds.
func (s *Service) DeleteRole(ctx context.Context, roleID id.ID) error {
	scope, err := security.Authorize(ctx, security.ConfigUsers)
	if err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		role, err := s.roles.GetByID(ctx, scope.TenantID, roleID)
		if err != nil {
			return err
		}
		if role.IsSystem {
			return apperror.NewConflict("system roles cannot be deleted").WithDetail("role_id", roleID)
		}
		n, err := s.users.CountWithRole(ctx, scope.TenantID, roleID)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperror.NewConflict("role is assigned to users").
				WithDetail("role_id", roleID).
				WithDetail("users", n)
		}
		if err := s.roles.Delete(ctx, scope.TenantID, roleID); err != nil {
			return err
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: "role",
			EntityID:   roleID,
			Action:     audit.ActionDelete,
			Changes:    map[string]any{"name": role.Name},
		})
	})
}

// CreateUser adds a user to the caller's tenant. Only a SUPER_ADMIN may
// create another SUPER_ADMIN.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	scope, err := security.Authorize(ctx, security.ConfigUsers)
	if err != nil {
		return nil, err
	}

	in.Email = NormalizeEmail(in.Email)
	in.LegacyRole = strings.ToUpper(strings.TrimSpace(in.LegacyRole))
	if !strings.Contains(in.Email, "@") {
		return nil, apperror.NewValidation("a valid email is required").WithDetail("field", "email")
	}
	if strings.TrimSpace(in.Nombre) == "" {
		return nil, apperror.NewValidation("nombre is required").WithDetail("field", "nombre")
	}
	if err := s.checkPassword(in.Password); err != nil {
		return nil, err
	}
	switch {
	case in.LegacyRole == "" && in.RoleID == nil:
		return nil, apperror.NewValidation("legacyRole or roleId is required")
	case in.LegacyRole != "" && in.RoleID != nil:
		return nil, apperror.NewValidation("legacyRole and roleId are mutually exclusive")
	case in.LegacyRole != "" && !security.IsLegacyName(in.LegacyRole):
		return nil, apperror.NewValidation("unknown legacy role").WithDetail("field", "legacyRole")
	case in.LegacyRole == security.LegacySuperAdmin && !(scope.RoleKind == appctx.RoleKindLegacy && scope.RoleName == security.LegacySuperAdmin):
		return nil, apperror.NewForbidden("only a super admin can create a super admin")
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := NewUser(scope.TenantID, in.Email, in.Nombre, hash, s.now())
	user.LegacyRole = in.LegacyRole
	user.RoleID = in.RoleID

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if in.RoleID != nil {
			if _, err := s.roles.GetByID(ctx, scope.TenantID, *in.RoleID); err != nil {
				if apperror.IsNotFound(err) {
					return apperror.NewInvalidReference("role", "role does not exist").WithDetail("role_id", *in.RoleID)
				}
				return err
			}
		}
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: "user",
			EntityID:   user.ID,
			Action:     audit.ActionCreate,
			Changes:    map[string]any{"email": user.Email, "legacy_role": user.LegacyRole, "role_id": user.RoleID},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "user created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// ListUsers lists the tenant's users.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]User, int, error) {
	scope, err := security.Authorize(ctx, security.ConfigUsers)
	if err != nil {
		return nil, 0, err
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	users, total, err := s.users.List(ctx, scope.TenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	if users == nil {
		users = []User{}
	}
	return users, total, nil
}

// ResolveUserRole loads the role variant of a stored user.
func (s *Service) ResolveUserRole(ctx context.Context, user *User) (security.Role, error) {
	var dynamic *security.DynamicRole
	if user.RoleID != nil && user.LegacyRole != security.LegacySuperAdmin {
		role, err := s.roles.GetByID(ctx, user.TenantID, *user.RoleID)
		if err != nil {
			return nil, fmt.Errorf("load role: %w", err)
		}
		dynamic = role.Dynamic()
	}
	return security.ResolveRole(user.LegacyRole, dynamic)
}

// issue resolves the role and creates an access/refresh pair.
func (s *Service) issue(ctx context.Context, user *User) (*TokenPair, error) {
	role, err := s.ResolveUserRole(ctx, user)
	if err != nil {
		logger.Error(ctx, "role resolution failed", "user_id", user.ID, "error", err)
		return nil, apperror.NewForbidden("user has no usable role")
	}

	raw, err := generateRandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	now := s.now()
	refresh := &RefreshToken{
		ID:        id.New(),
		UserID:    user.ID,
		TenantID:  user.TenantID,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
	}
	if err := s.tokens.SaveRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	access, expiresAt, err := s.jwt.GenerateAccessToken(&appctx.UserContext{
		UserID:      user.ID,
		TenantID:    user.TenantID,
		Email:       user.Email,
		RoleKind:    role.Kind(),
		RoleName:    role.Name(),
		Permissions: role.Capabilities(),
		SessionID:   refresh.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

func (s *Service) checkTenant(ctx context.Context, tenantID id.ID) error {
	t, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}
	if !t.IsActive() {
		return apperror.NewForbidden("tenant is suspended")
	}
	return nil
}

func (s *Service) checkPassword(password string) error {
	if len(password) < s.config.PasswordMinLength {
		return apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return apperror.NewValidation("password is too long").WithDetail("field", "password")
	}
	return nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperror.NewValidation("password is too long").WithDetail("field", "password")
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func dedupe(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// hashToken creates SHA256 hash of token.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// generateRandomToken generates a random token string.
func generateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
