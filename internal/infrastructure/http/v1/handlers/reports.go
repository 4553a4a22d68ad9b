package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"distripos/internal/domain/reports"
	"distripos/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Dashboard handles GET /reports/dashboard?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *ReportsHandler) Dashboard(c *gin.Context) {
	var q dto.DashboardQuery
	if !h.BindQuery(c, &q) {
		return
	}
	from, to := q.Range()
	d, err := h.service.Dashboard(c.Request.Context(), from, to)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
