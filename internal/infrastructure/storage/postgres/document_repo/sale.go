package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/domain"
	"distripos/internal/domain/documents/sale"
	"distripos/internal/infrastructure/storage/postgres"
)

const (
	saleTable      = "ventas"
	saleLinesTable = "detalle_ventas"

	saleIdempotencyUnique = "ventas_tenant_idempotency_key"
	saleNumberUnique      = "ventas_tenant_numero_key"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	*BaseDocumentRepo[sale.Sale, sale.Line]
}

var _ sale.Repository = (*SaleRepo)(nil)

func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[sale.Sale, sale.Line](
			txManager, saleTable, saleLinesTable, "sale", "producto_nombre",
		),
	}
}

func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	if err := r.insertHeader(ctx, s); err != nil {
		switch {
		case postgres.IsUniqueViolation(err, saleIdempotencyUnique) && s.IdempotencyKey != nil:
			return apperror.NewDuplicate("sale", "idempotency_key", *s.IdempotencyKey)
		case postgres.IsUniqueViolation(err, saleNumberUnique):
			return apperror.NewDuplicate("sale", "numero", s.Numero)
		}
		return err
	}
	return r.insertLines(ctx, s.Lines)
}

func (r *SaleRepo) GetByID(ctx context.Context, tenantID, saleID id.ID) (*sale.Sale, error) {
	return r.load(ctx, tenantID, squirrel.Eq{"id": saleID}, saleID.String(), false)
}

func (r *SaleRepo) GetByIdempotencyKey(ctx context.Context, tenantID id.ID, key string) (*sale.Sale, error) {
	return r.load(ctx, tenantID, squirrel.Eq{"idempotency_key": key}, key, false)
}

func (r *SaleRepo) LockForVoid(ctx context.Context, tenantID, saleID id.ID) (*sale.Sale, error) {
	return r.load(ctx, tenantID, squirrel.Eq{"id": saleID}, saleID.String(), true)
}

func (r *SaleRepo) load(ctx context.Context, tenantID id.ID, where squirrel.Sqlizer, key string, forUpdate bool) (*sale.Sale, error) {
	s, err := r.getHeader(ctx, tenantID, where, key, forUpdate)
	if err != nil {
		return nil, err
	}
	lines, err := r.lines(ctx, tenantID, s.ID)
	if err != nil {
		return nil, err
	}
	s.Lines = lines
	return s, nil
}

// lines joins product names for display; a deleted product leaves the name empty.
func (r *SaleRepo) lines(ctx context.Context, tenantID, saleID id.ID) ([]sale.Line, error) {
	q := r.Builder().
		Select(
			"d.id", "d.tenant_id", "d.venta_id", "d.producto_id", "d.cantidad",
			"d.precio_unitario", "d.subtotal", "COALESCE(p.nombre, '') AS producto_nombre",
		).
		From(saleLinesTable + " d").
		LeftJoin(productTable + " p ON p.id = d.producto_id AND p.tenant_id = d.tenant_id").
		Where(squirrel.Eq{"d.tenant_id": tenantID, "d.venta_id": saleID}).
		OrderBy("d.id ASC")

	lines := []sale.Line{}
	if err := postgres.Select(ctx, r.querier(ctx), &lines, q); err != nil {
		return nil, fmt.Errorf("list sale lines: %w", err)
	}
	return lines, nil
}

func (r *SaleRepo) MarkVoided(ctx context.Context, tenantID, saleID id.ID, reason string, at time.Time) (bool, error) {
	q := r.Builder().
		Update(saleTable).
		SetMap(map[string]any{
			"estado":           sale.StatusVoided,
			"motivo_anulacion": reason,
			"fecha_anulacion":  at,
			"updated_at":       at,
		}).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": saleID, "estado": sale.StatusCompleted})

	n, err := postgres.Exec(ctx, r.querier(ctx), q)
	if err != nil {
		return false, fmt.Errorf("void sale: %w", err)
	}
	return n == 1, nil
}

func (r *SaleRepo) List(ctx context.Context, tenantID id.ID, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	page := domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}.Normalize()

	q := r.baseSelect(tenantID)
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"fecha": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.Lt{"fecha": *filter.To})
	}

	querier := r.querier(ctx)
	total, err := postgres.Count(ctx, querier, q)
	if err != nil {
		return domain.ListResult[*sale.Sale]{}, fmt.Errorf("count sales: %w", err)
	}

	q = q.OrderBy("fecha DESC", "id DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset))

	var items []*sale.Sale
	if err := postgres.Select(ctx, querier, &items, q); err != nil {
		return domain.ListResult[*sale.Sale]{}, fmt.Errorf("list sales: %w", err)
	}
	return domain.NewListResult(items, total, page), nil
}
