// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"distripos/internal/infrastructure/http/v1/middleware"
)

// CRUDRouteHandler defines the interface for entity handlers with standard
// list/create/get/update/delete endpoints.
type CRUDRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// CRUDPermissions names the capability guarding each CRUD route.
type CRUDPermissions struct {
	Read   string
	Create string
	Update string
	Delete string
}

// RegisterCRUDRoutes registers standard CRUD routes for an entity.
//
// Usage:
//
//	handler := handlers.NewCustomerHandler(base, customers, receivables)
//	RegisterCRUDRoutes(protected.Group("/customers"), handler, CRUDPermissions{...})
func RegisterCRUDRoutes(group *gin.RouterGroup, handler CRUDRouteHandler, perms CRUDPermissions) {
	group.GET("", middleware.RequirePermission(perms.Read), handler.List)
	group.POST("", middleware.RequirePermission(perms.Create), handler.Create)
	group.GET("/:id", middleware.RequirePermission(perms.Read), handler.Get)
	group.PUT("/:id", middleware.RequirePermission(perms.Update), handler.Update)
	group.DELETE("/:id", middleware.RequirePermission(perms.Delete), handler.Delete)
}
