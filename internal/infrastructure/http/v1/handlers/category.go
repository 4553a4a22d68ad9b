package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"distripos/internal/domain/catalogs/reference"
	"distripos/internal/infrastructure/http/v1/dto"
)

// CategoryHandler serves the product categories.
type CategoryHandler struct {
	*BaseHandler
	service *reference.Service
}

func NewCategoryHandler(base *BaseHandler, service *reference.Service) *CategoryHandler {
	return &CategoryHandler{BaseHandler: base, service: service}
}

// List handles GET /categories
func (h *CategoryHandler) List(c *gin.Context) {
	items, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Create handles POST /categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var req dto.CategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ref, err := h.service.CreateCategory(c.Request.Context(), req.Nombre)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, ref)
}

// Delete handles DELETE /categories/:id
func (h *CategoryHandler) Delete(c *gin.Context) {
	categoryID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(c.Request.Context(), categoryID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
