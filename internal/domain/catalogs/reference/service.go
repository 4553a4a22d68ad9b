package reference

import (
	"context"
	"fmt"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/security"
	"distripos/internal/core/tx"
	"distripos/pkg/logger"
)

// Service resolves and manages reference names.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a reference service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// Resolve returns the id of the named reference, creating it when missing.
// A blank name resolves to nil. When a concurrent writer creates the same
// name first, the winner's row is returned.
func (s *Service) Resolve(ctx context.Context, tenantID id.ID, kind Kind, nombre string) (*id.ID, error) {
	nombre = CleanName(nombre)
	if nombre == "" {
		return nil, nil
	}
	if !kind.Valid() {
		return nil, apperror.NewValidation("unknown reference kind").WithDetail("kind", string(kind))
	}

	existing, err := s.repo.FindByName(ctx, tenantID, kind, nombre)
	if err == nil {
		return &existing.ID, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("find %s: %w", kind, err)
	}

	ref := NewReference(tenantID, kind, nombre)
	err = s.repo.Create(ctx, ref)
	if err == nil {
		return &ref.ID, nil
	}
	if !apperror.HasCode(err, apperror.CodeDuplicate) {
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}

	logger.Debug(ctx, "reference created concurrently, re-reading", "kind", kind, "nombre", nombre)
	winner, err := s.repo.FindByName(ctx, tenantID, kind, nombre)
	if err != nil {
		return nil, fmt.Errorf("re-read %s: %w", kind, err)
	}
	return &winner.ID, nil
}

// ResolveSet resolves the four optional product references at once.
func (s *Service) ResolveSet(ctx context.Context, tenantID id.ID, names Names) (Resolved, error) {
	var (
		out Resolved
		err error
	)
	if out.MarcaID, err = s.Resolve(ctx, tenantID, KindBrand, names.Marca); err != nil {
		return out, err
	}
	if out.ModeloID, err = s.Resolve(ctx, tenantID, KindModel, names.Modelo); err != nil {
		return out, err
	}
	if out.ProveedorID, err = s.Resolve(ctx, tenantID, KindProvider, names.Proveedor); err != nil {
		return out, err
	}
	if out.CategoriaID, err = s.Resolve(ctx, tenantID, KindCategory, names.Categoria); err != nil {
		return out, err
	}
	return out, nil
}

// Names are the free-text reference columns of an import row.
type Names struct {
	Marca     string
	Modelo    string
	Proveedor string
	Categoria string
}

// Resolved holds the ids matching Names.
type Resolved struct {
	MarcaID     *id.ID
	ModeloID    *id.ID
	ProveedorID *id.ID
	CategoriaID *id.ID
}

// --- Categories ---

// ListCategories returns the tenant's categories ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]*Reference, error) {
	scope, err := security.Authorize(ctx, security.StockView)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope.TenantID, KindCategory)
}

// CreateCategory adds a category; duplicates are reported as such.
func (s *Service) CreateCategory(ctx context.Context, nombre string) (*Reference, error) {
	scope, err := security.Authorize(ctx, security.ProductCreate)
	if err != nil {
		return nil, err
	}

	ref := NewReference(scope.TenantID, KindCategory, nombre)
	if ref.Nombre == "" {
		return nil, apperror.NewValidation("nombre is required").WithDetail("field", "nombre")
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, ref)
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// DeleteCategory removes an unused category.
func (s *Service) DeleteCategory(ctx context.Context, categoryID id.ID) error {
	scope, err := security.Authorize(ctx, security.ProductDelete)
	if err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inUse, err := s.repo.InUse(ctx, scope.TenantID, KindCategory, categoryID)
		if err != nil {
			return err
		}
		if inUse {
			return apperror.NewConflict("category is used by products").
				WithDetail("category_id", categoryID)
		}
		return s.repo.Delete(ctx, scope.TenantID, KindCategory, categoryID)
	})
}
