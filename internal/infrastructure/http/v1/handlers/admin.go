package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"distripos/internal/core/security"
	"distripos/internal/domain/auth"
	"distripos/internal/infrastructure/http/v1/dto"
)

// AdminHandler serves tenant roles and users.
type AdminHandler struct {
	*BaseHandler
	service *auth.Service
}

func NewAdminHandler(base *BaseHandler, service *auth.Service) *AdminHandler {
	return &AdminHandler{BaseHandler: base, service: service}
}

// Permissions handles GET /permissions
func (h *AdminHandler) Permissions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": security.Catalog})
}

// ListRoles handles GET /roles
func (h *AdminHandler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": roles})
}

// CreateRole handles POST /roles
func (h *AdminHandler) CreateRole(c *gin.Context) {
	var req dto.RoleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	role, err := h.service.CreateRole(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, role)
}

// UpdateRole handles PUT /roles/:id
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	roleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.RoleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	role, err := h.service.UpdateRole(c.Request.Context(), roleID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, role)
}

// DeleteRole handles DELETE /roles/:id
func (h *AdminHandler) DeleteRole(c *gin.Context) {
	roleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRole(c.Request.Context(), roleID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// ListUsers handles GET /users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	f := q.ToFilter()
	users, total, err := h.service.ListUsers(c.Request.Context(), auth.UserFilter{
		Search: f.Search,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.UserListResponse{Items: users, TotalCount: total})
}

// CreateUser handles POST /users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	user, err := h.service.CreateUser(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, user)
}
