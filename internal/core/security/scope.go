package security

import (
	"context"
	"fmt"

	"distripos/internal/core/apperror"
	appctx "distripos/internal/core/context"
	"distripos/internal/core/id"
)

// AccessScope is the caller's resolved capability set for one request.
type AccessScope struct {
	TenantID id.ID
	UserID   id.ID
	RoleKind string
	RoleName string

	all  bool
	caps map[string]struct{}
}

// NewAccessScope flattens the permissions carried by UserContext.
func NewAccessScope(ctx context.Context) *AccessScope {
	user := appctx.GetUser(ctx)
	if user == nil {
		return &AccessScope{caps: map[string]struct{}{}}
	}
	return NewScope(user.TenantID, user.UserID, user.RoleKind, user.RoleName, user.Permissions)
}

// NewScope builds a scope from explicit values.
func NewScope(tenantID, userID id.ID, roleKind, roleName string, permissions []string) *AccessScope {
	s := &AccessScope{
		TenantID: tenantID,
		UserID:   userID,
		RoleKind: roleKind,
		RoleName: roleName,
		caps:     make(map[string]struct{}, len(permissions)),
	}
	for _, p := range permissions {
		if p == AdminAll {
			s.all = true
		}
		s.caps[p] = struct{}{}
	}
	return s
}

// IsAdmin reports the AdminAll override.
func (s *AccessScope) IsAdmin() bool {
	return s.all
}

func (s *AccessScope) Has(key string) bool {
	if s.all {
		return true
	}
	_, ok := s.caps[key]
	return ok
}

// Require returns a forbidden error when key is missing.
func (s *AccessScope) Require(key string) error {
	if !s.Has(key) {
		return apperror.NewForbidden(
			fmt.Sprintf("permission %s required", key),
		).WithDetail("permission", key)
	}
	return nil
}

// RequireLegacyRoleOr admits SUPER_ADMIN, any of the listed legacy roles, or a
// dynamic role holding capability.
func (s *AccessScope) RequireLegacyRoleOr(capability string, legacy ...string) error {
	switch s.RoleKind {
	case appctx.RoleKindLegacy:
		if s.RoleName == LegacySuperAdmin {
			return nil
		}
		for _, name := range legacy {
			if s.RoleName == name {
				return nil
			}
		}
	case appctx.RoleKindDynamic:
		if s.Has(capability) {
			return nil
		}
	}
	return apperror.NewForbidden("insufficient permissions for this action").
		WithDetail("role", s.RoleName).
		WithDetail("permission", capability)
}

type scopeKey struct{}

// WithScope adds AccessScope to context.
func WithScope(ctx context.Context, scope *AccessScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// GetScope returns the scope stored by the middleware, or builds one from UserContext.
func GetScope(ctx context.Context) *AccessScope {
	if v, ok := ctx.Value(scopeKey{}).(*AccessScope); ok {
		return v
	}
	return NewAccessScope(ctx)
}

// Authorize returns the request scope after checking that it carries a tenant
// and, when key is not empty, the capability key.
func Authorize(ctx context.Context, key string) (*AccessScope, error) {
	s := GetScope(ctx)
	if id.IsNil(s.TenantID) {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	if key == "" {
		return s, nil
	}
	if err := s.Require(key); err != nil {
		return nil, err
	}
	return s, nil
}
