package memory

import (
	"context"
	"sync"

	appctx "distripos/internal/core/context"
	"distripos/internal/core/id"
	"distripos/internal/domain/audit"
	"distripos/internal/domain/events"
	"distripos/internal/domain/registers/cash"
)

// Publisher appends events to the store's outbox, inside the transaction.
type Publisher struct{ s *Store }

func (s *Store) Publisher() *Publisher { return &Publisher{s: s} }

var _ events.Publisher = (*Publisher)(nil)

func (p *Publisher) Publish(_ context.Context, e events.Event) error {
	return p.s.write("outbox.Publish", func(st *state) error {
		st.events = append(st.events, e)
		return nil
	})
}

// Auditor implements audit.Recorder.
type Auditor struct{ s *Store }

func (s *Store) Auditor() *Auditor { return &Auditor{s: s} }

var _ audit.Recorder = (*Auditor)(nil)

func (a *Auditor) Record(ctx context.Context, e audit.Entry) error {
	return a.s.write("audit.Record", func(st *state) error {
		st.audit = append(st.audit, AuditRecord{
			TenantID: appctx.GetTenantID(ctx),
			UserID:   appctx.GetUserID(ctx),
			Entry:    e,
		})
		return nil
	})
}

// Invalidations records every invalidation call.
type Invalidations struct {
	mu    sync.Mutex
	calls []Invalidation
}

// Invalidation is one recorded call.
type Invalidation struct {
	TenantID id.ID
	Scopes   []string
}

var _ events.Invalidator = (*Invalidations)(nil)

func (i *Invalidations) Invalidate(_ context.Context, tenantID id.ID, scopes ...string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, Invalidation{TenantID: tenantID, Scopes: scopes})
	return nil
}

// Calls returns the recorded invalidations.
func (i *Invalidations) Calls() []Invalidation {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]Invalidation(nil), i.calls...)
}

// Locker is a process-local cash.Locker.
type Locker struct {
	mu   sync.Mutex
	held map[string]bool
}

var _ cash.Locker = (*Locker)(nil)

func NewLocker() *Locker {
	return &Locker{held: map[string]bool{}}
}

func (l *Locker) Acquire(_ context.Context, key string) (func(context.Context), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, cash.ErrLockBusy
	}
	l.held[key] = true
	return func(context.Context) {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, nil
}
