package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"distripos/internal/core/apperror"
	appctx "distripos/internal/core/context"
	"distripos/internal/core/id"
	"distripos/internal/core/tenant"
	"distripos/pkg/logger"
)

// TenantLookup loads the tenant named by the token.
type TenantLookup interface {
	GetByID(ctx context.Context, tenantID id.ID) (*tenant.Tenant, error)
}

// ActiveTenant rejects requests of suspended or deleted tenants and stores
// the tenant in the request context. Must run after Auth.
func ActiveTenant(lookup TenantLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tenantID := appctx.GetTenantID(ctx)
		if id.IsNil(tenantID) {
			abortUnauthorized(c, "token carries no tenant")
			return
		}

		t, err := lookup.GetByID(ctx, tenantID)
		if err != nil {
			if apperror.IsNotFound(err) {
				// A token for a removed tenant is as good as no token.
				abortUnauthorized(c, "unknown tenant")
				return
			}
			logger.Warn(ctx, "tenant lookup failed", "tenant_id", tenantID, "error", err)
			_ = c.Error(err)
			c.Abort()
			return
		}
		if !t.IsActive() {
			_ = c.Error(apperror.NewForbidden("tenant is not active").WithDetail("tenant_id", tenantID))
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(tenant.WithTenant(ctx, t))
		c.Next()
	}
}
