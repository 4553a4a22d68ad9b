package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	appctx "distripos/internal/core/context"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
)

func permissionRouter(user *appctx.UserContext, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.Use(func(c *gin.Context) {
		if user != nil {
			c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), user))
		}
		c.Next()
	})
	r.Use(AccessScope())
	r.GET("/guarded", guard, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func userWith(permissions ...string) *appctx.UserContext {
	return &appctx.UserContext{
		UserID:      id.New(),
		TenantID:    id.New(),
		RoleKind:    appctx.RoleKindDynamic,
		RoleName:    "Caja",
		Permissions: permissions,
	}
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name string
		user *appctx.UserContext
		want int
	}{
		{"granted", userWith(security.StockView), http.StatusNoContent},
		{"admin override", userWith(security.AdminAll), http.StatusNoContent},
		{"missing capability", userWith(security.SalesAccess), http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := permissionRouter(tt.user, RequirePermission(security.StockView))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireAnyPermission(t *testing.T) {
	guard := RequireAnyPermission(security.SalesAccess, security.SalesCharge)

	w := httptest.NewRecorder()
	permissionRouter(userWith(security.SalesCharge), guard).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	permissionRouter(userWith(security.CashView), guard).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
