package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/domain/catalogs/reference"
	"distripos/pkg/logger"
)

// ImportRow is one spreadsheet row. Row is the 1-based line number in the
// source file, header included.
type ImportRow struct {
	Row int `validate:"-"`

	SKU          string           `validate:"required,max=64"`
	Nombre       string           `validate:"required,max=255"`
	PrecioCompra decimal.Decimal  `validate:"-"`
	PrecioVenta  decimal.Decimal  `validate:"-"`
	TasaIva      *decimal.Decimal `validate:"-"`
	Stock        *int64           `validate:"omitempty,min=0"`
	StockMinimo  *int64           `validate:"omitempty,min=0"`

	Marca     string `validate:"max=120"`
	Modelo    string `validate:"max=120"`
	Proveedor string `validate:"max=120"`
	Categoria string `validate:"max=120"`
}

// ImportFailure reports a skipped row.
type ImportFailure struct {
	Row   int    `json:"row"`
	SKU   string `json:"sku"`
	Error string `json:"error"`
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Created int             `json:"created"`
	Updated int             `json:"updated"`
	Failed  []ImportFailure `json:"failed"`
}

// BulkImport creates or updates products from rows. Rows are processed in
// chunks; each chunk commits on its own, so a failing chunk leaves earlier
// chunks applied and reports its rows as failed.
func (s *Service) BulkImport(ctx context.Context, rows []ImportRow) (*ImportResult, error) {
	scope, err := security.Authorize(ctx, security.ProductCreate)
	if err != nil {
		return nil, err
	}
	if err := scope.Require(security.ProductEdit); err != nil {
		return nil, err
	}

	result := &ImportResult{Failed: []ImportFailure{}}

	valid := make([]ImportRow, 0, len(rows))
	for _, row := range rows {
		row.SKU = strings.TrimSpace(row.SKU)
		row.Nombre = strings.TrimSpace(row.Nombre)
		if err := s.validateRow(row); err != nil {
			result.Failed = append(result.Failed, ImportFailure{Row: row.Row, SKU: row.SKU, Error: err.Error()})
			continue
		}
		valid = append(valid, row)
	}

	for start := 0; start < len(valid); start += s.chunkSize {
		end := min(start+s.chunkSize, len(valid))
		chunk := valid[start:end]

		var created, updated int
		err := s.txManager.RunWithTimeout(ctx, s.chunkTimeout, func(ctx context.Context) error {
			var err error
			created, updated, err = s.importChunk(ctx, scope.TenantID, chunk)
			return err
		})
		if err != nil {
			logger.Warn(ctx, "import chunk failed",
				"first_row", chunk[0].Row,
				"rows", len(chunk),
				"error", err,
			)
			msg := chunkErrorMessage(err)
			for _, row := range chunk {
				result.Failed = append(result.Failed, ImportFailure{Row: row.Row, SKU: row.SKU, Error: msg})
			}
			continue
		}
		result.Created += created
		result.Updated += updated
	}

	logger.Info(ctx, "bulk import finished",
		"created", result.Created,
		"updated", result.Updated,
		"failed", len(result.Failed),
	)

	if result.Created+result.Updated > 0 {
		s.invalidate(ctx, scope.TenantID)
	}
	return result, nil
}

func (s *Service) importChunk(ctx context.Context, tenantID id.ID, chunk []ImportRow) (created, updated int, err error) {
	skus := make([]string, 0, len(chunk))
	for _, row := range chunk {
		skus = append(skus, row.SKU)
	}
	existing, err := s.repo.GetBySKUs(ctx, tenantID, skus)
	if err != nil {
		return 0, 0, fmt.Errorf("load existing skus: %w", err)
	}

	for _, row := range chunk {
		refs, err := s.refs.ResolveSet(ctx, tenantID, reference.Names{
			Marca:     row.Marca,
			Modelo:    row.Modelo,
			Proveedor: row.Proveedor,
			Categoria: row.Categoria,
		})
		if err != nil {
			return 0, 0, fmt.Errorf("row %d: %w", row.Row, err)
		}

		if current, ok := existing[row.SKU]; ok {
			next := *current
			applyRow(&next, row, refs)
			if err := s.update(ctx, current, &next, "Ajuste por importación"); err != nil {
				return 0, 0, fmt.Errorf("row %d: %w", row.Row, err)
			}
			existing[row.SKU] = &next
			updated++
			continue
		}

		p := NewProduct(tenantID, row.SKU, row.Nombre)
		applyRow(p, row, refs)
		p.Touch(s.now())
		if err := s.create(ctx, p); err != nil {
			return 0, 0, fmt.Errorf("row %d: %w", row.Row, err)
		}
		existing[row.SKU] = p
		created++
	}
	return created, updated, nil
}

// applyRow copies row values onto p. Optional columns left empty keep the
// product's current value.
func applyRow(p *Product, row ImportRow, refs reference.Resolved) {
	p.Nombre = row.Nombre
	p.PrecioCompra = row.PrecioCompra
	p.PrecioVenta = row.PrecioVenta
	if row.TasaIva != nil {
		p.TasaIva = *row.TasaIva
	}
	if row.Stock != nil {
		p.StockActual = *row.Stock
	}
	if row.StockMinimo != nil {
		p.StockMinimo = *row.StockMinimo
	}
	if refs.MarcaID != nil {
		p.MarcaID = refs.MarcaID
	}
	if refs.ModeloID != nil {
		p.ModeloID = refs.ModeloID
	}
	if refs.ProveedorID != nil {
		p.ProveedorID = refs.ProveedorID
	}
	if refs.CategoriaID != nil {
		p.CategoriaID = refs.CategoriaID
	}
}

func (s *Service) validateRow(row ImportRow) error {
	if err := s.validate.Struct(row); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s: failed %s", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return err
	}
	if row.PrecioCompra.IsNegative() {
		return errors.New("precioCompra cannot be negative")
	}
	if row.PrecioVenta.IsNegative() {
		return errors.New("precioVenta cannot be negative")
	}
	if row.TasaIva != nil && (row.TasaIva.IsNegative() || row.TasaIva.GreaterThan(decimal.NewFromInt(100))) {
		return errors.New("tasaIva must be between 0 and 100")
	}
	return nil
}

func chunkErrorMessage(err error) string {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
