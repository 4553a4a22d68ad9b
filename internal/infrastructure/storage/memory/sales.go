package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/domain"
	"distripos/internal/domain/documents/sale"
)

// Sales implements sale.Repository.
type Sales struct{ s *Store }

func (s *Store) Sales() *Sales { return &Sales{s: s} }

var _ sale.Repository = (*Sales)(nil)

func (r *Sales) Create(_ context.Context, sl *sale.Sale) error {
	return r.s.write("sale.Create", func(st *state) error {
		for _, other := range st.sales {
			if other.TenantID != sl.TenantID {
				continue
			}
			if sl.IdempotencyKey != nil && other.IdempotencyKey != nil && *other.IdempotencyKey == *sl.IdempotencyKey {
				return apperror.NewDuplicate("sale", "idempotency_key", *sl.IdempotencyKey)
			}
			if other.Numero == sl.Numero {
				return apperror.NewDuplicate("sale", "numero", sl.Numero)
			}
		}
		v := *sl
		v.Lines = slices.Clone(sl.Lines)
		st.sales[sl.ID] = v
		return nil
	})
}

func (r *Sales) GetByID(_ context.Context, tenantID, saleID id.ID) (*sale.Sale, error) {
	var (
		out *sale.Sale
		err error
	)
	r.s.read(func(st *state) {
		v, ok := st.sales[saleID]
		if !ok || v.TenantID != tenantID {
			err = apperror.NewNotFound("sale", saleID)
			return
		}
		v.Lines = slices.Clone(v.Lines)
		out = &v
	})
	return out, err
}

func (r *Sales) GetByIdempotencyKey(_ context.Context, tenantID id.ID, key string) (*sale.Sale, error) {
	var out *sale.Sale
	r.s.read(func(st *state) {
		for _, v := range st.sales {
			if v.TenantID == tenantID && v.IdempotencyKey != nil && *v.IdempotencyKey == key {
				v.Lines = slices.Clone(v.Lines)
				out = &v
				return
			}
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("sale", key)
	}
	return out, nil
}

func (r *Sales) LockForVoid(ctx context.Context, tenantID, saleID id.ID) (*sale.Sale, error) {
	return r.GetByID(ctx, tenantID, saleID)
}

func (r *Sales) MarkVoided(_ context.Context, tenantID, saleID id.ID, reason string, at time.Time) (bool, error) {
	var ok bool
	err := r.s.write("sale.MarkVoided", func(st *state) error {
		v, found := st.sales[saleID]
		if !found || v.TenantID != tenantID || v.Estado != sale.StatusCompleted {
			return nil
		}
		v.Estado = sale.StatusVoided
		v.MotivoAnulacion = &reason
		v.FechaAnulacion = &at
		v.UpdatedAt = at
		st.sales[saleID] = v
		ok = true
		return nil
	})
	return ok, err
}

func (r *Sales) List(_ context.Context, tenantID id.ID, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	page := domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}.Normalize()

	var matched []*sale.Sale
	r.s.read(func(st *state) {
		for _, v := range st.sales {
			if v.TenantID != tenantID {
				continue
			}
			if filter.From != nil && v.Fecha.Before(*filter.From) {
				continue
			}
			if filter.To != nil && !v.Fecha.Before(*filter.To) {
				continue
			}
			v.Lines = nil
			matched = append(matched, &v)
		}
	})
	slices.SortFunc(matched, func(a, b *sale.Sale) int {
		return cmp.Or(b.Fecha.Compare(a.Fecha), cmp.Compare(b.Numero, a.Numero))
	})
	return domain.NewListResult(paginate(matched, page), int64(len(matched)), page), nil
}
