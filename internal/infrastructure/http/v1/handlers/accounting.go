package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"distripos/internal/domain/accounting"
	"distripos/internal/infrastructure/http/v1/dto"
)

// AccountingHandler handles expenses, tax movements and the monthly summary.
type AccountingHandler struct {
	*BaseHandler
	service *accounting.Service
}

func NewAccountingHandler(base *BaseHandler, service *accounting.Service) *AccountingHandler {
	return &AccountingHandler{BaseHandler: base, service: service}
}

// Summary handles GET /accounting/summary?month=YYYY-MM
func (h *AccountingHandler) Summary(c *gin.Context) {
	var q dto.SummaryQuery
	if !h.BindQuery(c, &q) {
		return
	}
	summary, err := h.service.MonthlySummary(c.Request.Context(), q.Time())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RecordExpense handles POST /accounting/expenses
func (h *AccountingHandler) RecordExpense(c *gin.Context) {
	var req dto.ExpenseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	expense, err := h.service.RecordExpense(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, expense)
}

// RecordTax handles POST /accounting/taxes
func (h *AccountingHandler) RecordTax(c *gin.Context) {
	var req dto.TaxRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m, err := h.service.RecordTaxMovement(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, m)
}
