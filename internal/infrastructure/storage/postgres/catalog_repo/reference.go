package catalog_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/domain/catalogs/reference"
	"distripos/internal/infrastructure/storage/postgres"
)

const referenceTable = "referencias"

// productColumn maps a reference kind to the product column pointing at it.
var productColumn = map[reference.Kind]string{
	reference.KindBrand:    "marca_id",
	reference.KindModel:    "modelo_id",
	reference.KindProvider: "proveedor_id",
	reference.KindCategory: "categoria_id",
}

// ReferenceRepo implements reference.Repository over one table keyed by kind.
type ReferenceRepo struct {
	*BaseCatalogRepo[reference.Reference]
}

var _ reference.Repository = (*ReferenceRepo)(nil)

func NewReferenceRepo(txManager *postgres.TxManager) *ReferenceRepo {
	return &ReferenceRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[reference.Reference](txManager, referenceTable, "reference", "nombre"),
	}
}

func kindEntity(kind reference.Kind) string {
	return strings.ToLower(string(kind))
}

func (r *ReferenceRepo) FindByName(ctx context.Context, tenantID id.ID, kind reference.Kind, nombre string) (*reference.Reference, error) {
	var ref reference.Reference
	q := r.baseSelect(tenantID).
		Where(squirrel.Eq{"kind": kind}).
		Where(squirrel.Expr("lower(nombre) = lower(?)", nombre)).
		Limit(1)

	if err := postgres.Get(ctx, r.querier(ctx), &ref, q, kindEntity(kind), nombre); err != nil {
		return nil, err
	}
	return &ref, nil
}

// Create uses ON CONFLICT DO NOTHING so a lost race surfaces as Duplicate
// without aborting the caller's transaction.
func (r *ReferenceRepo) Create(ctx context.Context, ref *reference.Reference) error {
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now().UTC()
	}

	q := r.Builder().
		Insert(referenceTable).
		Columns("id", "tenant_id", "kind", "nombre", "created_at").
		Values(ref.ID, ref.TenantID, ref.Kind, ref.Nombre, ref.CreatedAt).
		Suffix("ON CONFLICT DO NOTHING")

	n, err := postgres.Exec(ctx, r.querier(ctx), q)
	if err != nil {
		return fmt.Errorf("insert %s: %w", referenceTable, err)
	}
	if n == 0 {
		return apperror.NewDuplicate(kindEntity(ref.Kind), "nombre", ref.Nombre)
	}
	return nil
}

func (r *ReferenceRepo) List(ctx context.Context, tenantID id.ID, kind reference.Kind) ([]*reference.Reference, error) {
	items := []*reference.Reference{}
	q := r.baseSelect(tenantID).
		Where(squirrel.Eq{"kind": kind}).
		OrderBy("nombre ASC")

	if err := postgres.Select(ctx, r.querier(ctx), &items, q); err != nil {
		return nil, fmt.Errorf("list %s: %w", kindEntity(kind), err)
	}
	return items, nil
}

func (r *ReferenceRepo) Delete(ctx context.Context, tenantID id.ID, kind reference.Kind, refID id.ID) error {
	q := r.Builder().
		Delete(referenceTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "kind": kind, "id": refID})

	n, err := postgres.Exec(ctx, r.querier(ctx), q)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kindEntity(kind), err)
	}
	if n == 0 {
		return apperror.NewNotFound(kindEntity(kind), refID)
	}
	return nil
}

func (r *ReferenceRepo) InUse(ctx context.Context, tenantID id.ID, kind reference.Kind, refID id.ID) (bool, error) {
	col, ok := productColumn[kind]
	if !ok {
		return false, apperror.NewValidation("unknown reference kind").WithDetail("kind", kind)
	}
	q := r.Builder().
		Select("1").
		From(productTable).
		Where(squirrel.Eq{"tenant_id": tenantID, col: refID}).
		Limit(1)
	return postgres.Exists(ctx, r.querier(ctx), q)
}
