package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/id"
	"distripos/internal/core/tenant"
	"distripos/internal/domain/accounting"
	"distripos/internal/domain/documents/sale"
	"distripos/internal/domain/reconciliation"
	"distripos/internal/domain/reports"
)

// Reports implements reports.Repository.
type Reports struct{ s *Store }

func (s *Store) Reports() *Reports { return &Reports{s: s} }

var _ reports.Repository = (*Reports)(nil)

// completed calls fn for every COMPLETADA sale of the tenant in [from, to).
func (st *state) completed(tenantID id.ID, from, to time.Time, fn func(sale.Sale)) {
	for _, v := range st.sales {
		if v.TenantID != tenantID || v.Estado != sale.StatusCompleted {
			continue
		}
		if v.Fecha.Before(from) || !v.Fecha.Before(to) {
			continue
		}
		fn(v)
	}
}

func (r *Reports) SalesByDay(_ context.Context, tenantID id.ID, p reports.Period) ([]reports.DailySales, error) {
	byDay := map[string]*reports.DailySales{}
	r.s.read(func(st *state) {
		st.completed(tenantID, p.From, p.To, func(v sale.Sale) {
			day := v.Fecha.Format(time.DateOnly)
			d, ok := byDay[day]
			if !ok {
				d = &reports.DailySales{Fecha: day, Total: decimal.Zero}
				byDay[day] = d
			}
			d.Total = d.Total.Add(v.Total)
			d.Cantidad++
		})
	})
	out := make([]reports.DailySales, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	slices.SortFunc(out, func(a, b reports.DailySales) int { return cmp.Compare(a.Fecha, b.Fecha) })
	return out, nil
}

func (r *Reports) TopProducts(_ context.Context, tenantID id.ID, p reports.Period, limit int) ([]reports.TopProduct, error) {
	byProduct := map[id.ID]*reports.TopProduct{}
	r.s.read(func(st *state) {
		st.completed(tenantID, p.From, p.To, func(v sale.Sale) {
			for _, l := range v.Lines {
				t, ok := byProduct[l.ProductoID]
				if !ok {
					t = &reports.TopProduct{ProductID: l.ProductoID, Nombre: l.ProductoNombre, Total: decimal.Zero}
					if prod, found := st.products[l.ProductoID]; found {
						t.Nombre = prod.Nombre
					}
					byProduct[l.ProductoID] = t
				}
				t.Cantidad += l.Cantidad
				t.Total = t.Total.Add(l.Subtotal)
			}
		})
	})
	out := make([]reports.TopProduct, 0, len(byProduct))
	for _, t := range byProduct {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b reports.TopProduct) int {
		return cmp.Or(cmp.Compare(b.Cantidad, a.Cantidad), cmp.Compare(a.Nombre, b.Nombre))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Reports) SalesTotals(_ context.Context, tenantID id.ID, p reports.Period) (reports.Totals, error) {
	t := reports.Totals{Total: decimal.Zero}
	r.s.read(func(st *state) {
		st.completed(tenantID, p.From, p.To, func(v sale.Sale) {
			t.Total = t.Total.Add(v.Total)
			t.Cantidad++
		})
	})
	return t, nil
}

// Accounting implements accounting.Repository.
type Accounting struct{ s *Store }

func (s *Store) Accounting() *Accounting { return &Accounting{s: s} }

var _ accounting.Repository = (*Accounting)(nil)

func (r *Accounting) InsertExpense(_ context.Context, e *accounting.Expense) error {
	return r.s.write("accounting.InsertExpense", func(st *state) error {
		st.expenses = append(st.expenses, *e)
		return nil
	})
}

func (r *Accounting) InsertTaxMovement(_ context.Context, m *accounting.TaxMovement) error {
	return r.s.write("accounting.InsertTaxMovement", func(st *state) error {
		st.taxes = append(st.taxes, *m)
		return nil
	})
}

func (r *Accounting) InvoicedTotal(_ context.Context, tenantID id.ID, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	r.s.read(func(st *state) {
		st.completed(tenantID, from, to, func(v sale.Sale) { total = total.Add(v.Total) })
	})
	return total, nil
}

func (r *Accounting) ExpenseTotal(_ context.Context, tenantID id.ID, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	r.s.read(func(st *state) {
		for _, e := range st.expenses {
			if e.TenantID == tenantID && !e.Fecha.Before(from) && e.Fecha.Before(to) {
				total = total.Add(e.Monto)
			}
		}
	})
	return total, nil
}

func (r *Accounting) ListTaxMovements(_ context.Context, tenantID id.ID, from, to time.Time) ([]accounting.TaxMovement, error) {
	var out []accounting.TaxMovement
	r.s.read(func(st *state) {
		for _, m := range st.taxes {
			if m.TenantID == tenantID && !m.Fecha.Before(from) && m.Fecha.Before(to) {
				out = append(out, m)
			}
		}
	})
	return out, nil
}

func (r *Accounting) RecentExpenses(_ context.Context, tenantID id.ID, limit int) ([]accounting.Expense, error) {
	var out []accounting.Expense
	r.s.read(func(st *state) {
		for i := len(st.expenses) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
			if st.expenses[i].TenantID == tenantID {
				out = append(out, st.expenses[i])
			}
		}
	})
	return out, nil
}

func (r *Accounting) GetCompanyConfig(_ context.Context, tenantID id.ID) (*tenant.CompanyConfig, error) {
	var out *tenant.CompanyConfig
	r.s.read(func(st *state) {
		if cfg, ok := st.companies[tenantID]; ok {
			out = &cfg
		}
	})
	return out, nil
}

// Reconciliation implements reconciliation.Repository.
type Reconciliation struct{ s *Store }

func (s *Store) Reconciliation() *Reconciliation { return &Reconciliation{s: s} }

var _ reconciliation.Repository = (*Reconciliation)(nil)

// ListTenantIDs returns every tenant owning products or customers, plus
// registered tenants.
func (r *Reconciliation) ListTenantIDs(context.Context) ([]id.ID, error) {
	seen := map[id.ID]bool{}
	var out []id.ID
	add := func(t id.ID) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	r.s.read(func(st *state) {
		for t := range st.tenants {
			add(t)
		}
		for _, p := range st.products {
			add(p.TenantID)
		}
		for _, c := range st.customers {
			add(c.TenantID)
		}
	})
	slices.SortFunc(out, func(a, b id.ID) int { return cmp.Compare(a.String(), b.String()) })
	return out, nil
}

func (r *Reconciliation) StockTotals(_ context.Context, tenantID id.ID) ([]reconciliation.StockTotal, error) {
	var out []reconciliation.StockTotal
	r.s.read(func(st *state) {
		ledger := map[id.ID]int64{}
		for _, m := range st.stockMoves {
			if m.TenantID == tenantID {
				ledger[m.ProductoID] += m.Cantidad
			}
		}
		for _, p := range st.products {
			if p.TenantID == tenantID && p.StockActual != ledger[p.ID] {
				out = append(out, reconciliation.StockTotal{
					ProductID:   p.ID,
					SKU:         p.SKU,
					StockActual: p.StockActual,
					Ledger:      ledger[p.ID],
				})
			}
		}
	})
	return out, nil
}

func (r *Reconciliation) BalanceTotals(_ context.Context, tenantID id.ID) ([]reconciliation.BalanceTotal, error) {
	var out []reconciliation.BalanceTotal
	r.s.read(func(st *state) {
		ledger := map[id.ID]decimal.Decimal{}
		for _, m := range st.accountMoves {
			if m.TenantID == tenantID {
				ledger[m.ClienteID] = ledger[m.ClienteID].Add(m.Tipo.Signed(m.Monto))
			}
		}
		for _, c := range st.customers {
			if c.TenantID == tenantID && !c.SaldoActual.Equal(ledger[c.ID]) {
				out = append(out, reconciliation.BalanceTotal{
					CustomerID:  c.ID,
					SaldoActual: c.SaldoActual,
					Ledger:      ledger[c.ID],
				})
			}
		}
	})
	return out, nil
}

// SetStock overwrites stock_actual without a movement. Tests use it to
// introduce drift.
func (s *Store) SetStock(productID id.ID, qty int64) {
	_ = s.write("test.SetStock", func(st *state) error {
		if p, ok := st.products[productID]; ok {
			p.StockActual = qty
			st.products[productID] = p
		}
		return nil
	})
}
