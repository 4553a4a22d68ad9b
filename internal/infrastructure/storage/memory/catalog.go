package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/domain"
	"distripos/internal/domain/catalogs/customer"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/catalogs/reference"
	"distripos/internal/domain/registers/stock"
)

// Products implements product.Repository.
type Products struct{ s *Store }

func (s *Store) Products() *Products { return &Products{s: s} }

var _ product.Repository = (*Products)(nil)

func (r *Products) Create(_ context.Context, p *product.Product) error {
	return r.s.write("product.Create", func(st *state) error {
		for _, other := range st.products {
			if other.TenantID == p.TenantID && other.SKU == p.SKU {
				return apperror.NewDuplicate("product", "sku", p.SKU)
			}
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *Products) Update(_ context.Context, p *product.Product) error {
	return r.s.write("product.Update", func(st *state) error {
		current, ok := st.products[p.ID]
		if !ok || current.TenantID != p.TenantID {
			return apperror.NewNotFound("product", p.ID)
		}
		for _, other := range st.products {
			if other.ID != p.ID && other.TenantID == p.TenantID && other.SKU == p.SKU {
				return apperror.NewDuplicate("product", "sku", p.SKU)
			}
		}
		next := *p
		next.StockActual = current.StockActual
		st.products[p.ID] = next
		return nil
	})
}

func (r *Products) GetByID(_ context.Context, tenantID, productID id.ID) (*product.Product, error) {
	var (
		out *product.Product
		err error
	)
	r.s.read(func(st *state) {
		p, ok := st.products[productID]
		if !ok || p.TenantID != tenantID {
			err = apperror.NewNotFound("product", productID)
			return
		}
		out = &p
	})
	return out, err
}

func (r *Products) GetBySKU(_ context.Context, tenantID id.ID, sku string) (*product.Product, error) {
	var out *product.Product
	r.s.read(func(st *state) {
		for _, p := range st.products {
			if p.TenantID == tenantID && p.SKU == sku {
				out = &p
				return
			}
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("product", sku)
	}
	return out, nil
}

func (r *Products) GetByIDs(_ context.Context, tenantID id.ID, ids []id.ID) ([]*product.Product, error) {
	var out []*product.Product
	r.s.read(func(st *state) {
		seen := map[id.ID]bool{}
		for _, pid := range ids {
			p, ok := st.products[pid]
			if !ok || p.TenantID != tenantID || seen[pid] {
				continue
			}
			seen[pid] = true
			out = append(out, &p)
		}
	})
	return out, nil
}

func (r *Products) GetBySKUs(_ context.Context, tenantID id.ID, skus []string) (map[string]*product.Product, error) {
	out := make(map[string]*product.Product, len(skus))
	r.s.read(func(st *state) {
		for _, p := range st.products {
			if p.TenantID == tenantID && slices.Contains(skus, p.SKU) {
				out[p.SKU] = &p
			}
		}
	})
	return out, nil
}

func (r *Products) List(_ context.Context, tenantID id.ID, filter product.ListFilter) (domain.ListResult[*product.Product], error) {
	page := filter.ListFilter.Normalize()
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var matched []*product.Product
	r.s.read(func(st *state) {
		for _, p := range st.products {
			if p.TenantID != tenantID {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(p.Nombre), search) &&
				!strings.Contains(strings.ToLower(p.SKU), search) {
				continue
			}
			if filter.LowStockOnly && !p.IsLowStock() {
				continue
			}
			if filter.CategoriaID != nil && (p.CategoriaID == nil || *p.CategoriaID != *filter.CategoriaID) {
				continue
			}
			matched = append(matched, &p)
		}
	})
	slices.SortFunc(matched, func(a, b *product.Product) int {
		return cmp.Or(cmp.Compare(a.Nombre, b.Nombre), cmp.Compare(a.SKU, b.SKU))
	})
	return domain.NewListResult(paginate(matched, page), int64(len(matched)), page), nil
}

func (r *Products) HasSaleLines(_ context.Context, tenantID, productID id.ID) (bool, error) {
	var found bool
	r.s.read(func(st *state) {
		for _, sl := range st.sales {
			if sl.TenantID != tenantID {
				continue
			}
			for _, l := range sl.Lines {
				if l.ProductoID == productID {
					found = true
					return
				}
			}
		}
	})
	return found, nil
}

func (r *Products) Delete(_ context.Context, tenantID, productID id.ID) error {
	return r.s.write("product.Delete", func(st *state) error {
		p, ok := st.products[productID]
		if !ok || p.TenantID != tenantID {
			return apperror.NewNotFound("product", productID)
		}
		delete(st.products, productID)
		st.stockMoves = slices.DeleteFunc(st.stockMoves, func(m stock.Movement) bool {
			return m.TenantID == tenantID && m.ProductoID == productID
		})
		return nil
	})
}

// References implements reference.Repository.
type References struct{ s *Store }

func (s *Store) References() *References { return &References{s: s} }

var _ reference.Repository = (*References)(nil)

func (r *References) FindByName(_ context.Context, tenantID id.ID, kind reference.Kind, nombre string) (*reference.Reference, error) {
	var out *reference.Reference
	r.s.read(func(st *state) {
		for _, ref := range st.references {
			if ref.TenantID == tenantID && ref.Kind == kind && strings.EqualFold(ref.Nombre, nombre) {
				out = &ref
				return
			}
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound(strings.ToLower(string(kind)), nombre)
	}
	return out, nil
}

func (r *References) Create(_ context.Context, ref *reference.Reference) error {
	return r.s.write("reference.Create", func(st *state) error {
		for _, other := range st.references {
			if other.TenantID == ref.TenantID && other.Kind == ref.Kind && strings.EqualFold(other.Nombre, ref.Nombre) {
				return apperror.NewDuplicate(strings.ToLower(string(ref.Kind)), "nombre", ref.Nombre)
			}
		}
		st.references[ref.ID] = *ref
		return nil
	})
}

func (r *References) List(_ context.Context, tenantID id.ID, kind reference.Kind) ([]*reference.Reference, error) {
	var out []*reference.Reference
	r.s.read(func(st *state) {
		for _, ref := range st.references {
			if ref.TenantID == tenantID && ref.Kind == kind {
				out = append(out, &ref)
			}
		}
	})
	slices.SortFunc(out, func(a, b *reference.Reference) int {
		return cmp.Compare(strings.ToLower(a.Nombre), strings.ToLower(b.Nombre))
	})
	return out, nil
}

func (r *References) Delete(_ context.Context, tenantID id.ID, kind reference.Kind, refID id.ID) error {
	return r.s.write("reference.Delete", func(st *state) error {
		ref, ok := st.references[refID]
		if !ok || ref.TenantID != tenantID || ref.Kind != kind {
			return apperror.NewNotFound(strings.ToLower(string(kind)), refID)
		}
		delete(st.references, refID)
		return nil
	})
}

func (r *References) InUse(_ context.Context, tenantID id.ID, kind reference.Kind, refID id.ID) (bool, error) {
	var used bool
	r.s.read(func(st *state) {
		for _, p := range st.products {
			if p.TenantID != tenantID {
				continue
			}
			var ptr *id.ID
			switch kind {
			case reference.KindBrand:
				ptr = p.MarcaID
			case reference.KindModel:
				ptr = p.ModeloID
			case reference.KindProvider:
				ptr = p.ProveedorID
			case reference.KindCategory:
				ptr = p.CategoriaID
			}
			if ptr != nil && *ptr == refID {
				used = true
				return
			}
		}
	})
	return used, nil
}

// Customers implements customer.Repository.
type Customers struct{ s *Store }

func (s *Store) Customers() *Customers { return &Customers{s: s} }

var _ customer.Repository = (*Customers)(nil)

func (r *Customers) Create(_ context.Context, c *customer.Customer) error {
	return r.s.write("customer.Create", func(st *state) error {
		st.customers[c.ID] = *c
		return nil
	})
}

func (r *Customers) Update(_ context.Context, c *customer.Customer) error {
	return r.s.write("customer.Update", func(st *state) error {
		current, ok := st.customers[c.ID]
		if !ok || current.TenantID != c.TenantID {
			return apperror.NewNotFound("customer", c.ID)
		}
		next := *c
		next.SaldoActual = current.SaldoActual
		st.customers[c.ID] = next
		return nil
	})
}

func (r *Customers) GetByID(_ context.Context, tenantID, customerID id.ID) (*customer.Customer, error) {
	var (
		out *customer.Customer
		err error
	)
	r.s.read(func(st *state) {
		c, ok := st.customers[customerID]
		if !ok || c.TenantID != tenantID {
			err = apperror.NewNotFound("customer", customerID)
			return
		}
		out = &c
	})
	return out, err
}

func (r *Customers) List(_ context.Context, tenantID id.ID, filter domain.ListFilter) (domain.ListResult[*customer.Customer], error) {
	page := filter.Normalize()
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var matched []*customer.Customer
	r.s.read(func(st *state) {
		for _, c := range st.customers {
			if c.TenantID != tenantID {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(c.Nombre), search) &&
				(c.CUIT == nil || !strings.Contains(*c.CUIT, search)) {
				continue
			}
			matched = append(matched, &c)
		}
	})
	slices.SortFunc(matched, func(a, b *customer.Customer) int {
		return cmp.Compare(a.Nombre, b.Nombre)
	})
	return domain.NewListResult(paginate(matched, page), int64(len(matched)), page), nil
}

func (r *Customers) Delete(_ context.Context, tenantID, customerID id.ID) error {
	return r.s.write("customer.Delete", func(st *state) error {
		c, ok := st.customers[customerID]
		if !ok || c.TenantID != tenantID {
			return apperror.NewNotFound("customer", customerID)
		}
		delete(st.customers, customerID)
		return nil
	})
}

func paginate[T any](items []T, page domain.ListFilter) []T {
	if page.Offset >= len(items) {
		return nil
	}
	end := min(page.Offset+page.Limit, len(items))
	return items[page.Offset:end]
}
