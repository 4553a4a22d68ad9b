// Package context provides request-scoped values extraction.
package context

import (
	"context"

	"distripos/internal/core/id"
)

// Role kinds carried by UserContext.RoleKind.
const (
	RoleKindLegacy  = "legacy"
	RoleKindDynamic = "dynamic"
)

// UserContext contains authenticated user information decoded from the access token.
type UserContext struct {
	UserID   id.ID
	TenantID id.ID
	Email    string

	// RoleKind is RoleKindLegacy (RoleName is the legacy role) or
	// RoleKindDynamic (RoleName is the tenant role's display name).
	RoleKind string
	RoleName string

	// Permissions is the flattened capability set resolved at login.
	Permissions []string
	SessionID   string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or id.Nil().
func GetUserID(ctx context.Context) id.ID {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return id.Nil()
}

// GetTenantID returns tenant ID from context or id.Nil().
func GetTenantID(ctx context.Context) id.ID {
	if u := GetUser(ctx); u != nil {
		return u.TenantID
	}
	return id.Nil()
}
