// Package catalog_repo provides PostgreSQL implementations for catalog repositories.
// Every table carries tenant_id and every statement filters on it.
package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/domain"
	"distripos/internal/infrastructure/storage/postgres"
)

// BaseCatalogRepo provides the tenant scoped CRUD shared by catalog tables.
// Embed this in specific catalog repositories.
type BaseCatalogRepo[T any] struct {
	txManager  *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string

	// searchCols are matched with ILIKE by List
	searchCols []string
}

// NewBaseCatalogRepo creates a new base catalog repository.
func NewBaseCatalogRepo[T any](
	txManager *postgres.TxManager,
	tableName string,
	entityName string,
	searchCols ...string,
) *BaseCatalogRepo[T] {
	return &BaseCatalogRepo[T]{
		txManager:  txManager,
		tableName:  tableName,
		entityName: entityName,
		selectCols: postgres.ExtractDBColumns[T](),
		searchCols: searchCols,
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseCatalogRepo[T]) Builder() squirrel.StatementBuilderType {
	return postgres.Builder()
}

func (r *BaseCatalogRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// baseSelect creates a SELECT builder restricted to one tenant.
func (r *BaseCatalogRepo[T]) baseSelect(tenantID id.ID) squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{"tenant_id": tenantID})
}

// insert writes entity using its "db" tags. Columns in omit are left to
// their defaults.
func (r *BaseCatalogRepo[T]) insert(ctx context.Context, entity any, omit ...string) error {
	data := postgres.StructToMap(entity, omit...)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	q := r.Builder().
		Insert(r.tableName).
		SetMap(data)

	if _, err := postgres.Exec(ctx, r.querier(ctx), q); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// update rewrites every column but the keys, created_at and omit.
func (r *BaseCatalogRepo[T]) update(ctx context.Context, tenantID, entityID id.ID, entity any, omit ...string) error {
	omit = append(omit, "id", "tenant_id", "created_at")
	data := postgres.StructToMap(entity, omit...)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}
	if _, ok := data["updated_at"]; ok {
		data["updated_at"] = time.Now().UTC()
	}

	q := r.Builder().
		Update(r.tableName).
		SetMap(data).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": entityID})

	n, err := postgres.Exec(ctx, r.querier(ctx), q)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if n == 0 {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return nil
}

// GetByID retrieves entity by ID.
func (r *BaseCatalogRepo[T]) GetByID(ctx context.Context, tenantID, entityID id.ID) (*T, error) {
	var entity T
	q := r.baseSelect(tenantID).
		Where(squirrel.Eq{"id": entityID}).
		Limit(1)

	if err := postgres.Get(ctx, r.querier(ctx), &entity, q, r.entityName, entityID.String()); err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetByIDs returns the rows found; missing ids are absent.
func (r *BaseCatalogRepo[T]) GetByIDs(ctx context.Context, tenantID id.ID, ids []id.ID) ([]*T, error) {
	if len(ids) == 0 {
		return []*T{}, nil
	}
	var items []*T
	q := r.baseSelect(tenantID).Where(squirrel.Eq{"id": ids})
	if err := postgres.Select(ctx, r.querier(ctx), &items, q); err != nil {
		return nil, fmt.Errorf("get %s by ids: %w", r.tableName, err)
	}
	return items, nil
}

// list retrieves rows with search, the extra conditions and pagination.
func (r *BaseCatalogRepo[T]) list(ctx context.Context, tenantID id.ID, filter domain.ListFilter, orderBy string, where ...squirrel.Sqlizer) (domain.ListResult[*T], error) {
	filter = filter.Normalize()
	q := r.baseSelect(tenantID)

	if filter.Search != "" && len(r.searchCols) > 0 {
		pattern := "%" + filter.Search + "%"
		or := make(squirrel.Or, 0, len(r.searchCols))
		for _, col := range r.searchCols {
			or = append(or, squirrel.ILike{col: pattern})
		}
		q = q.Where(or)
	}
	for _, w := range where {
		q = q.Where(w)
	}

	querier := r.querier(ctx)
	total, err := postgres.Count(ctx, querier, q)
	if err != nil {
		return domain.ListResult[*T]{}, fmt.Errorf("count %s: %w", r.tableName, err)
	}

	q = q.OrderBy(orderBy).
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	var items []*T
	if err := postgres.Select(ctx, querier, &items, q); err != nil {
		return domain.ListResult[*T]{}, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return domain.NewListResult(items, total, filter), nil
}

// Delete removes the row, NotFound when no row matched.
func (r *BaseCatalogRepo[T]) Delete(ctx context.Context, tenantID, entityID id.ID) error {
	q := r.Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": entityID})

	n, err := postgres.Exec(ctx, r.querier(ctx), q)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewConflict(r.entityName+" is still referenced").
				WithDetail("id", entityID)
		}
		return fmt.Errorf("delete %s: %w", r.tableName, err)
	}
	if n == 0 {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return nil
}
