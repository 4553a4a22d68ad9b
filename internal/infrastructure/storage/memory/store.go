// Package memory is an in-process implementation of every repository. It
// backs the service tests: transactions are serialized and a failed
// transaction restores the state it started from, the unique indexes of the
// relational schema are emulated.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"distripos/internal/core/id"
	"distripos/internal/core/tenant"
	"distripos/internal/domain/accounting"
	"distripos/internal/domain/audit"
	"distripos/internal/domain/auth"
	"distripos/internal/domain/catalogs/customer"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/catalogs/reference"
	"distripos/internal/domain/documents/sale"
	"distripos/internal/domain/events"
	"distripos/internal/domain/registers/cash"
	"distripos/internal/domain/registers/receivable"
	"distripos/internal/domain/registers/stock"
)

type state struct {
	products     map[id.ID]product.Product
	stockMoves   []stock.Movement
	references   map[id.ID]reference.Reference
	customers    map[id.ID]customer.Customer
	sessions     map[id.ID]cash.Session
	cashMoves    []cash.Movement
	accountMoves []receivable.Movement
	sales        map[id.ID]sale.Sale
	expenses     []accounting.Expense
	taxes        []accounting.TaxMovement
	tenants      map[id.ID]tenant.Tenant
	companies    map[id.ID]tenant.CompanyConfig
	users        map[id.ID]auth.User
	roles        map[id.ID]auth.Role
	tokens       map[id.ID]auth.RefreshToken
	sequences    map[string]int64
	events       []events.Event
	audit        []AuditRecord
}

func newState() *state {
	return &state{
		products:   map[id.ID]product.Product{},
		references: map[id.ID]reference.Reference{},
		customers:  map[id.ID]customer.Customer{},
		sessions:   map[id.ID]cash.Session{},
		sales:      map[id.ID]sale.Sale{},
		tenants:    map[id.ID]tenant.Tenant{},
		companies:  map[id.ID]tenant.CompanyConfig{},
		users:      map[id.ID]auth.User{},
		roles:      map[id.ID]auth.Role{},
		tokens:     map[id.ID]auth.RefreshToken{},
		sequences:  map[string]int64{},
	}
}

// clone copies every collection. Values are stored by value, so a shallow
// copy of each map is enough except for the sale lines.
func (st *state) clone() *state {
	c := &state{
		products:     maps.Clone(st.products),
		stockMoves:   slices.Clone(st.stockMoves),
		references:   maps.Clone(st.references),
		customers:    maps.Clone(st.customers),
		sessions:     maps.Clone(st.sessions),
		cashMoves:    slices.Clone(st.cashMoves),
		accountMoves: slices.Clone(st.accountMoves),
		sales:        make(map[id.ID]sale.Sale, len(st.sales)),
		expenses:     slices.Clone(st.expenses),
		taxes:        slices.Clone(st.taxes),
		tenants:      maps.Clone(st.tenants),
		companies:    maps.Clone(st.companies),
		users:        maps.Clone(st.users),
		roles:        maps.Clone(st.roles),
		tokens:       maps.Clone(st.tokens),
		sequences:    maps.Clone(st.sequences),
		events:       slices.Clone(st.events),
		audit:        slices.Clone(st.audit),
	}
	for k, v := range st.sales {
		v.Lines = slices.Clone(v.Lines)
		c.sales[k] = v
	}
	return c
}

// AuditRecord is an audit entry with the tenant and user it was written for.
type AuditRecord struct {
	TenantID id.ID
	UserID   id.ID
	Entry    audit.Entry
}

// Store holds all data of the process.
type Store struct {
	mu sync.Mutex
	st *state

	// txMu serializes transactions.
	txMu sync.Mutex

	// failNext holds one-shot errors keyed by operation, see FailOn.
	failMu   sync.Mutex
	failNext map[string]error
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState(), failNext: map[string]error{}}
}

// FailOn makes the next call of op return err. Ops are named
// "<repo>.<Method>", e.g. "cash.InsertMovement".
func (s *Store) FailOn(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failNext[op] = err
}

func (s *Store) injected(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err, ok := s.failNext[op]; ok {
		delete(s.failNext, op)
		return err
	}
	return nil
}

// read runs fn under the data lock.
func (s *Store) read(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

// write runs fn under the data lock after checking injected failures.
func (s *Store) write(op string, fn func(st *state) error) error {
	if err := s.injected(op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

type txKey struct{}

// TxManager implements tx.Manager over the store.
type TxManager struct {
	store *Store
}

func (s *Store) TxManager() *TxManager { return &TxManager{store: s} }

// RunInTransaction serializes fn with every other transaction. Nested calls
// join the outer one. On error the state is restored to the snapshot.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s := m.store
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(context.WithValue(ctx, txKey{}, true))
}

// RunWithTimeout bounds fn with a deadline.
func (m *TxManager) RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return m.RunInTransaction(ctx, fn)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return m.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return ctx.Err()
	})
}

// ReadOnly runs fn in a transaction that is always rolled back.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	errRollback := fmt.Errorf("read only")
	err := m.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return errRollback
	})
	if err == errRollback {
		return nil
	}
	return err
}

func (s *Store) restore(snapshot *state) {
	s.mu.Lock()
	s.st = snapshot
	s.mu.Unlock()
}

// NextSaleNumber issues V-<year>-<seq> per tenant.
func (s *Store) NextSaleNumber(_ context.Context, tenantID id.ID, at time.Time) (string, error) {
	var next int64
	err := s.write("numerator.Next", func(st *state) error {
		key := fmt.Sprintf("%s:V_%d", tenantID, at.Year())
		st.sequences[key]++
		next = st.sequences[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("V-%d-%05d", at.Year(), next), nil
}

// Events returns a copy of the outbox.
func (s *Store) Events() []events.Event {
	var out []events.Event
	s.read(func(st *state) { out = slices.Clone(st.events) })
	return out
}

// AuditTrail returns a copy of the audit entries.
func (s *Store) AuditTrail() []AuditRecord {
	var out []AuditRecord
	s.read(func(st *state) { out = slices.Clone(st.audit) })
	return out
}
