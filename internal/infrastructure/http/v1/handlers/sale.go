package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"distripos/internal/domain/documents/sale"
	"distripos/internal/infrastructure/http/v1/dto"
	"distripos/internal/infrastructure/http/v1/middleware"
)

// SaleHandler handles checkout and sale history.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service) *SaleHandler {
	return &SaleHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /sales
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	// The key also reaches the orchestrator, which records it on the sale.
	saleReq, err := req.ToRequest(c.GetHeader(middleware.HeaderIdempotencyKey))
	if err != nil {
		h.Error(c, err)
		return
	}
	s, err := h.service.Register(c.Request.Context(), saleReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, s)
}

// List handles GET /sales
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.SaleListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get handles GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	s, err := h.service.Get(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Void handles POST /sales/:id/void
func (h *SaleHandler) Void(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.VoidSaleRequest
	// An empty body is allowed; the service fills the default reason.
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	s, err := h.service.Void(c.Request.Context(), sale.VoidRequest{SaleID: saleID, Reason: req.Motivo})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}
