package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"distripos/internal/core/apperror"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/infrastructure/http/v1/dto"
	"distripos/internal/infrastructure/importer"
)

const maxImportBytes = 10 << 20 // 10 MiB

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	*BaseHandler
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /products
func (h *ProductHandler) List(c *gin.Context) {
	var q dto.ProductListQuery
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

// Create handles POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.ProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p, err := req.ToEntity(h.GetTenantID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

// Get handles GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Update handles PUT /products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Get(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(p); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Update(ctx, p); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Delete handles DELETE /products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), productID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Adjust handles POST /products/:id/adjust
func (h *ProductHandler) Adjust(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p, err := h.service.AdjustStock(c.Request.Context(), productID, req.Delta, req.Notas)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Movements handles GET /products/:id/movements
func (h *ProductHandler) Movements(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	limit := h.ParseIntQuery(c, "limit", 100)
	movements, err := h.service.Movements(c.Request.Context(), productID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": movements})
}

// Import handles POST /products/import (multipart "file", optional
// "mapping" JSON object of field -> header).
func (h *ProductHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		h.Error(c, apperror.NewValidation("file is required").WithDetail("error", err.Error()))
		return
	}

	var opts importer.Options
	if raw := c.PostForm("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.Mapping); err != nil {
			h.Error(c, apperror.NewValidation("invalid mapping").WithDetail("error", err.Error()))
			return
		}
	}

	f, err := fh.Open()
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	defer f.Close()

	parsed, err := importer.Read(fh.Filename, f, opts)
	if err != nil {
		appErr := apperror.NewValidation(err.Error()).WithDetail("file", fh.Filename)
		if errors.Is(err, importer.ErrUnsupportedFormat) {
			appErr.HTTPStatus = http.StatusUnsupportedMediaType
		}
		h.Error(c, appErr)
		return
	}

	result, err := h.service.BulkImport(c.Request.Context(), parsed.Rows)
	if err != nil {
		h.Error(c, err)
		return
	}
	result.Failed = append(result.Failed, parsed.Failed...)
	sort.SliceStable(result.Failed, func(i, j int) bool {
		return result.Failed[i].Row < result.Failed[j].Row
	})

	h.OK(c, dto.ImportResponse{
		ImportResult: result,
		Rows:         len(parsed.Rows) + len(parsed.Failed),
	})
}
