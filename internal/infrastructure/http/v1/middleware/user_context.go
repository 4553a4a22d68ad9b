package middleware

import (
	"github.com/gin-gonic/gin"

	"distripos/internal/core/security"
)

// AccessScope resolves the caller's capability set once per request and
// stores it for the domain layer (security.Authorize).
//
// This middleware must run AFTER Auth.
func AccessScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := security.NewAccessScope(c.Request.Context())
		c.Request = c.Request.WithContext(security.WithScope(c.Request.Context(), scope))
		c.Next()
	}
}
