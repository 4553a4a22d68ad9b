package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"distripos/internal/domain/registers/cash"
	"distripos/internal/infrastructure/http/v1/dto"
)

// CashHandler handles the cash register.
type CashHandler struct {
	*BaseHandler
	service *cash.Service
}

// NewCashHandler creates a new cash handler.
func NewCashHandler(base *BaseHandler, service *cash.Service) *CashHandler {
	return &CashHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Current handles GET /cash/current. With no open session the body is
// {"session": null}.
func (h *CashHandler) Current(c *gin.Context) {
	view, err := h.service.Current(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	if view == nil {
		c.JSON(http.StatusOK, gin.H{"session": nil})
		return
	}
	c.JSON(http.StatusOK, view)
}

// Open handles POST /cash/open
func (h *CashHandler) Open(c *gin.Context) {
	var req dto.OpenCashRequest
	if !h.BindJSON(c, &req) {
		return
	}
	session, err := h.service.Open(c.Request.Context(), req.MontoApertura)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, session)
}

// Close handles POST /cash/:id/close
func (h *CashHandler) Close(c *gin.Context) {
	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.CloseCashRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.service.Close(c.Request.Context(), sessionID, req.MontoContado)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// RecordMovement handles POST /cash/:id/movements
func (h *CashHandler) RecordMovement(c *gin.Context) {
	sessionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.CashMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m, err := h.service.RecordMovement(c.Request.Context(), req.ToInput(sessionID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, m)
}

// DeleteMovement handles DELETE /cash/movements/:id. The body is the
// compensating entry.
func (h *CashHandler) DeleteMovement(c *gin.Context) {
	movementID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	reversal, err := h.service.DeleteMovement(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, reversal)
}

// History handles GET /cash/history
func (h *CashHandler) History(c *gin.Context) {
	sessions, err := h.service.History(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": sessions})
}

// LastClose handles GET /cash/last-close
func (h *CashHandler) LastClose(c *gin.Context) {
	amount, err := h.service.LastClose(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ValueResponse[decimal.Decimal]{Value: amount})
}
