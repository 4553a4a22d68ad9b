package product

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/core/tx"
	"distripos/internal/domain"
	"distripos/internal/domain/audit"
	"distripos/internal/domain/catalogs/reference"
	"distripos/internal/domain/events"
	"distripos/internal/domain/registers/stock"
	"distripos/pkg/logger"
)

const entityName = "product"

// ServiceConfig wires the product service.
type ServiceConfig struct {
	Repo        Repository
	Ledger      *stock.Ledger
	References  *reference.Service
	TxManager   tx.Manager
	Audit       audit.Recorder
	Invalidator events.Invalidator

	// ImportChunkSize rows per bulk import transaction (default 100)
	ImportChunkSize int
	// ImportChunkTimeout bounds each chunk transaction (default 60s)
	ImportChunkTimeout time.Duration
}

// Service provides business logic for the product catalog.
type Service struct {
	repo        Repository
	ledger      *stock.Ledger
	refs        *reference.Service
	txManager   tx.Manager
	audit       audit.Recorder
	invalidator events.Invalidator

	chunkSize    int
	chunkTimeout time.Duration
	validate     *validator.Validate
	now          func() time.Time
}

// NewService creates a product service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:         cfg.Repo,
		ledger:       cfg.Ledger,
		refs:         cfg.References,
		txManager:    cfg.TxManager,
		audit:        cfg.Audit,
		invalidator:  cfg.Invalidator,
		chunkSize:    cfg.ImportChunkSize,
		chunkTimeout: cfg.ImportChunkTimeout,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		now:          time.Now,
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.invalidator == nil {
		s.invalidator = events.NopInvalidator{}
	}
	if s.chunkSize <= 0 {
		s.chunkSize = 100
	}
	if s.chunkTimeout <= 0 {
		s.chunkTimeout = 60 * time.Second
	}
	return s
}

// Create inserts a product. A non-zero stockActual is booked as the product's
// opening stock in the same transaction.
func (s *Service) Create(ctx context.Context, p *Product) error {
	scope, err := security.Authorize(ctx, security.ProductCreate)
	if err != nil {
		return err
	}

	p.TenantID = scope.TenantID
	if id.IsNil(p.ID) {
		p.ID = id.New()
	}
	p.Normalize()
	if err := p.Validate(ctx); err != nil {
		return err
	}
	p.Touch(s.now())

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.create(ctx, p)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, scope.TenantID)
	return nil
}

// create inserts with zero stock and lets the ledger book the opening
// quantity, so stockActual always equals the sum of its movements.
func (s *Service) create(ctx context.Context, p *Product) error {
	opening := p.StockActual
	p.StockActual = 0
	if err := s.repo.Create(ctx, p); err != nil {
		p.StockActual = opening
		return err
	}
	if opening != 0 {
		if err := s.ledger.Opening(ctx, p.TenantID, p.ID, opening); err != nil {
			p.StockActual = opening
			return err
		}
	}
	p.StockActual = opening

	return s.audit.Record(ctx, audit.Entry{
		EntityType: entityName,
		EntityID:   p.ID,
		Action:     audit.ActionCreate,
		Changes:    map[string]any{"sku": p.SKU, "nombre": p.Nombre, "stockActual": opening},
	})
}

// Update writes catalog fields. A changed stockActual is booked as a manual
// adjustment of the difference.
func (s *Service) Update(ctx context.Context, p *Product) error {
	scope, err := security.Authorize(ctx, security.ProductEdit)
	if err != nil {
		return err
	}

	p.TenantID = scope.TenantID
	p.Normalize()
	if err := p.Validate(ctx); err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, scope.TenantID, p.ID)
		if err != nil {
			return err
		}
		return s.update(ctx, existing, p, "Ajuste manual")
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, scope.TenantID)
	return nil
}

func (s *Service) update(ctx context.Context, existing, p *Product, notas string) error {
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}

	delta := p.StockActual - existing.StockActual
	if delta != 0 {
		if err := s.ledger.Adjust(ctx, p.TenantID, p.ID, delta, notas); err != nil {
			return err
		}
	}

	changes := map[string]any{}
	if existing.Nombre != p.Nombre {
		changes["nombre"] = p.Nombre
	}
	if !existing.PrecioVenta.Equal(p.PrecioVenta) {
		changes["precioVenta"] = p.PrecioVenta.String()
	}
	if !existing.PrecioCompra.Equal(p.PrecioCompra) {
		changes["precioCompra"] = p.PrecioCompra.String()
	}
	if delta != 0 {
		changes["stockDelta"] = delta
	}
	if len(changes) == 0 {
		return nil
	}
	return s.audit.Record(ctx, audit.Entry{
		EntityType: entityName,
		EntityID:   p.ID,
		Action:     audit.ActionUpdate,
		Changes:    changes,
	})
}

// AdjustStock applies a manual delta. Stock never goes below zero.
func (s *Service) AdjustStock(ctx context.Context, productID id.ID, delta int64, notas string) (*Product, error) {
	scope, err := security.Authorize(ctx, security.StockAdjust)
	if err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, apperror.NewValidation("delta must not be zero").WithDetail("field", "delta")
	}

	var updated *Product
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.ledger.Adjust(ctx, scope.TenantID, productID, delta, notas); err != nil {
			return err
		}
		p, err := s.repo.GetByID(ctx, scope.TenantID, productID)
		if err != nil {
			return err
		}
		updated = p
		return s.audit.Record(ctx, audit.Entry{
			EntityType: entityName,
			EntityID:   productID,
			Action:     audit.ActionUpdate,
			Changes:    map[string]any{"stockDelta": delta, "notas": notas},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, scope.TenantID)
	return updated, nil
}

// Delete removes a product no sale line references.
func (s *Service) Delete(ctx context.Context, productID id.ID) error {
	scope, err := security.Authorize(ctx, security.ProductDelete)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, scope.TenantID, productID)
		if err != nil {
			return err
		}
		referenced, err := s.repo.HasSaleLines(ctx, scope.TenantID, productID)
		if err != nil {
			return fmt.Errorf("check sale lines: %w", err)
		}
		if referenced {
			return apperror.NewConflict("product is referenced by sales and cannot be deleted").
				WithDetail("product_id", productID)
		}
		if err := s.repo.Delete(ctx, scope.TenantID, productID); err != nil {
			return err
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: entityName,
			EntityID:   productID,
			Action:     audit.ActionDelete,
			Changes:    map[string]any{"sku": p.SKU},
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, scope.TenantID)
	return nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	scope, err := security.Authorize(ctx, security.StockView)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, scope.TenantID, productID)
}

// List returns a page of products.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Product], error) {
	scope, err := security.Authorize(ctx, security.StockView)
	if err != nil {
		return domain.ListResult[*Product]{}, err
	}
	filter.ListFilter = filter.ListFilter.Normalize()
	return s.repo.List(ctx, scope.TenantID, filter)
}

// Movements returns the stock ledger of one product, newest first.
func (s *Service) Movements(ctx context.Context, productID id.ID, limit int) ([]stock.Movement, error) {
	scope, err := security.Authorize(ctx, security.StockView)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, scope.TenantID, productID); err != nil {
		return nil, err
	}
	return s.ledger.Movements(ctx, scope.TenantID, productID, limit)
}

func (s *Service) invalidate(ctx context.Context, tenantID id.ID) {
	if err := s.invalidator.Invalidate(ctx, tenantID, events.ScopeInventory, events.ScopeDashboard); err != nil {
		logger.Warn(ctx, "cache invalidation failed", "error", err)
	}
}
