package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"distripos/internal/domain/catalogs/customer"
	"distripos/internal/domain/registers/receivable"
	"distripos/internal/infrastructure/http/v1/dto"
)

// CustomerHandler handles customers and their current accounts.
type CustomerHandler struct {
	*BaseHandler
	service     *customer.Service
	receivables *receivable.Service
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(base *BaseHandler, service *customer.Service, receivables *receivable.Service) *CustomerHandler {
	return &CustomerHandler{
		BaseHandler: base,
		service:     service,
		receivables: receivables,
	}
}

// List handles GET /customers
func (h *CustomerHandler) List(c *gin.Context) {
	var q dto.ListQuery
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

// Create handles POST /customers
func (h *CustomerHandler) Create(c *gin.Context) {
	var req dto.CustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cust := req.ToEntity(h.GetTenantID(c))
	if err := h.service.Create(c.Request.Context(), cust); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, cust)
}

// Get handles GET /customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	cust, err := h.service.Get(c.Request.Context(), customerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

// Update handles PUT /customers/:id
func (h *CustomerHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.CustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cust, err := h.service.Get(ctx, customerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.ApplyTo(cust)
	if err := h.service.Update(ctx, cust); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cust)
}

// Delete handles DELETE /customers/:id
func (h *CustomerHandler) Delete(c *gin.Context) {
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), customerID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterPayment handles POST /customers/:id/payments
func (h *CustomerHandler) RegisterPayment(c *gin.Context) {
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.PaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.receivables.RegisterPayment(c.Request.Context(), req.ToInput(customerID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// Statement handles GET /customers/:id/statement
func (h *CustomerHandler) Statement(c *gin.Context) {
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	st, err := h.receivables.Statement(c.Request.Context(), customerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
