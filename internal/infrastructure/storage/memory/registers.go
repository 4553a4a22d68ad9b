package memory

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/domain/registers/cash"
	"distripos/internal/domain/registers/receivable"
	"distripos/internal/domain/registers/stock"
)

// Stock implements stock.Repository on the product rows.
type Stock struct{ s *Store }

func (s *Store) Stock() *Stock { return &Stock{s: s} }

var _ stock.Repository = (*Stock)(nil)

func (r *Stock) Decrement(_ context.Context, tenantID, productID id.ID, qty int64) (bool, error) {
	var ok bool
	err := r.s.write("stock.Decrement", func(st *state) error {
		p, found := st.products[productID]
		if !found || p.TenantID != tenantID || p.StockActual < qty {
			return nil
		}
		p.StockActual -= qty
		st.products[productID] = p
		ok = true
		return nil
	})
	return ok, err
}

func (r *Stock) Increment(_ context.Context, tenantID, productID id.ID, qty int64) (bool, error) {
	var ok bool
	err := r.s.write("stock.Increment", func(st *state) error {
		p, found := st.products[productID]
		if !found || p.TenantID != tenantID {
			return nil
		}
		p.StockActual += qty
		st.products[productID] = p
		ok = true
		return nil
	})
	return ok, err
}

func (r *Stock) CurrentStock(_ context.Context, tenantID, productID id.ID) (int64, error) {
	var (
		qty int64
		err error
	)
	r.s.read(func(st *state) {
		p, ok := st.products[productID]
		if !ok || p.TenantID != tenantID {
			err = apperror.NewNotFound("product", productID)
			return
		}
		qty = p.StockActual
	})
	return qty, err
}

func (r *Stock) InsertMovements(_ context.Context, movements []stock.Movement) error {
	return r.s.write("stock.InsertMovements", func(st *state) error {
		st.stockMoves = append(st.stockMoves, movements...)
		return nil
	})
}

func (r *Stock) ListByProduct(_ context.Context, tenantID, productID id.ID, limit int) ([]stock.Movement, error) {
	var out []stock.Movement
	r.s.read(func(st *state) {
		for i := len(st.stockMoves) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
			m := st.stockMoves[i]
			if m.TenantID == tenantID && m.ProductoID == productID {
				out = append(out, m)
			}
		}
	})
	return out, nil
}

// Cash implements cash.Repository.
type Cash struct{ s *Store }

func (s *Store) Cash() *Cash { return &Cash{s: s} }

var _ cash.Repository = (*Cash)(nil)

func (r *Cash) CreateSession(_ context.Context, sess *cash.Session) error {
	return r.s.write("cash.CreateSession", func(st *state) error {
		// ux_cash_sessions_open
		for _, other := range st.sessions {
			if other.TenantID == sess.TenantID && other.IsOpen() {
				return apperror.NewAlreadyOpen(other.ID)
			}
		}
		st.sessions[sess.ID] = *sess
		return nil
	})
}

func (r *Cash) GetOpenSession(_ context.Context, tenantID id.ID) (*cash.Session, error) {
	var out *cash.Session
	r.s.read(func(st *state) {
		for _, sess := range st.sessions {
			if sess.TenantID == tenantID && sess.IsOpen() {
				out = &sess
				return
			}
		}
	})
	return out, nil
}

func (r *Cash) GetSession(_ context.Context, tenantID, sessionID id.ID) (*cash.Session, error) {
	var (
		out *cash.Session
		err error
	)
	r.s.read(func(st *state) {
		sess, ok := st.sessions[sessionID]
		if !ok || sess.TenantID != tenantID {
			err = apperror.NewNotFound("cash session", sessionID)
			return
		}
		out = &sess
	})
	return out, err
}

// LockSession is GetSession: transactions are already serialized.
func (r *Cash) LockSession(ctx context.Context, tenantID, sessionID id.ID) (*cash.Session, error) {
	return r.GetSession(ctx, tenantID, sessionID)
}

func (r *Cash) CloseSession(_ context.Context, sess *cash.Session) (bool, error) {
	var ok bool
	err := r.s.write("cash.CloseSession", func(st *state) error {
		current, found := st.sessions[sess.ID]
		if !found || current.TenantID != sess.TenantID || !current.IsOpen() {
			return nil
		}
		st.sessions[sess.ID] = *sess
		ok = true
		return nil
	})
	return ok, err
}

func (r *Cash) ListClosed(_ context.Context, tenantID id.ID, limit int) ([]cash.Session, error) {
	var out []cash.Session
	r.s.read(func(st *state) {
		for _, sess := range st.sessions {
			if sess.TenantID == tenantID && !sess.IsOpen() {
				out = append(out, sess)
			}
		}
	})
	slices.SortFunc(out, func(a, b cash.Session) int {
		return closedAt(b).Compare(closedAt(a))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func closedAt(s cash.Session) time.Time {
	if s.FechaCierre != nil {
		return *s.FechaCierre
	}
	return s.FechaApertura
}

func (r *Cash) InsertMovement(_ context.Context, m *cash.Movement) error {
	return r.s.write("cash.InsertMovement", func(st *state) error {
		sess, ok := st.sessions[m.CajaID]
		if !ok || sess.TenantID != m.TenantID {
			return apperror.NewNotFound("cash session", m.CajaID)
		}
		st.cashMoves = append(st.cashMoves, *m)
		return nil
	})
}

func (r *Cash) GetMovement(_ context.Context, tenantID, movementID id.ID) (*cash.Movement, error) {
	var out *cash.Movement
	r.s.read(func(st *state) {
		for _, m := range st.cashMoves {
			if m.ID == movementID && m.TenantID == tenantID {
				out = &m
				return
			}
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("cash movement", movementID)
	}
	return out, nil
}

func (r *Cash) MarkReversed(_ context.Context, tenantID, movementID id.ID) (bool, error) {
	var ok bool
	err := r.s.write("cash.MarkReversed", func(st *state) error {
		for i := range st.cashMoves {
			m := &st.cashMoves[i]
			if m.ID == movementID && m.TenantID == tenantID && !m.Anulado {
				m.Anulado = true
				ok = true
				return nil
			}
		}
		return nil
	})
	return ok, err
}

func (r *Cash) ListMovements(_ context.Context, tenantID, sessionID id.ID) ([]cash.Movement, error) {
	var out []cash.Movement
	r.s.read(func(st *state) {
		for _, m := range st.cashMoves {
			if m.TenantID == tenantID && m.CajaID == sessionID {
				out = append(out, m)
			}
		}
	})
	return out, nil
}

func (r *Cash) Totals(_ context.Context, tenantID, sessionID id.ID) (cash.Totals, error) {
	t := cash.Totals{Ingresos: decimal.Zero, Egresos: decimal.Zero}
	r.s.read(func(st *state) {
		for _, m := range st.cashMoves {
			if m.TenantID != tenantID || m.CajaID != sessionID {
				continue
			}
			if m.Tipo == cash.Ingress {
				t.Ingresos = t.Ingresos.Add(m.Monto)
			} else {
				t.Egresos = t.Egresos.Add(m.Monto)
			}
		}
	})
	return t, nil
}

// Receivables implements receivable.Repository on the customer rows.
type Receivables struct{ s *Store }

func (s *Store) Receivables() *Receivables { return &Receivables{s: s} }

var _ receivable.Repository = (*Receivables)(nil)

func (r *Receivables) GetAccount(_ context.Context, tenantID, customerID id.ID) (*receivable.Account, error) {
	var (
		out *receivable.Account
		err error
	)
	r.s.read(func(st *state) {
		c, ok := st.customers[customerID]
		if !ok || c.TenantID != tenantID {
			err = apperror.NewNotFound("customer", customerID)
			return
		}
		out = &receivable.Account{
			CustomerID:      c.ID,
			Nombre:          c.Nombre,
			CuentaCorriente: c.CuentaCorriente,
			SaldoActual:     c.SaldoActual,
			LimiteCredito:   c.LimiteCredito,
		}
	})
	return out, err
}

func (r *Receivables) AdjustBalance(_ context.Context, tenantID, customerID id.ID, delta decimal.Decimal) (decimal.Decimal, error) {
	var saldo decimal.Decimal
	err := r.s.write("receivable.AdjustBalance", func(st *state) error {
		c, ok := st.customers[customerID]
		if !ok || c.TenantID != tenantID {
			return apperror.NewNotFound("customer", customerID)
		}
		c.SaldoActual = c.SaldoActual.Add(delta)
		st.customers[customerID] = c
		saldo = c.SaldoActual
		return nil
	})
	return saldo, err
}

func (r *Receivables) InsertMovement(_ context.Context, m *receivable.Movement) error {
	return r.s.write("receivable.InsertMovement", func(st *state) error {
		st.accountMoves = append(st.accountMoves, *m)
		return nil
	})
}

func (r *Receivables) ListMovements(_ context.Context, tenantID, customerID id.ID, limit int) ([]receivable.Movement, error) {
	var out []receivable.Movement
	r.s.read(func(st *state) {
		for i := len(st.accountMoves) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
			m := st.accountMoves[i]
			if m.TenantID == tenantID && m.ClienteID == customerID {
				out = append(out, m)
			}
		}
	})
	return out, nil
}

// StockMovements returns the whole stock ledger of a product, oldest first.
func (s *Store) StockMovements(tenantID, productID id.ID) []stock.Movement {
	var out []stock.Movement
	s.read(func(st *state) {
		for _, m := range st.stockMoves {
			if m.TenantID == tenantID && m.ProductoID == productID {
				out = append(out, m)
			}
		}
	})
	return out
}

// AccountMovements returns the whole ledger of a customer, oldest first.
func (s *Store) AccountMovements(tenantID, customerID id.ID) []receivable.Movement {
	var out []receivable.Movement
	s.read(func(st *state) {
		for _, m := range st.accountMoves {
			if m.TenantID == tenantID && m.ClienteID == customerID {
				out = append(out, m)
			}
		}
	})
	return out
}
