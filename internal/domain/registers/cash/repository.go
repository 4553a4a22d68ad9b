package cash

import (
	"context"

	"distripos/internal/core/id"
)

// Repository is the storage contract of the cash register.
type Repository interface {
	// CreateSession inserts an open session. The store allows one ABIERTA row
	// per tenant; a second insert fails with an AlreadyOpen error.
	CreateSession(ctx context.Context, s *Session) error

	// GetOpenSession returns nil, nil when the tenant has no open session.
	GetOpenSession(ctx context.Context, tenantID id.ID) (*Session, error)

	GetSession(ctx context.Context, tenantID, sessionID id.ID) (*Session, error)

	// LockSession reads the session with a row lock for the rest of the transaction.
	LockSession(ctx context.Context, tenantID, sessionID id.ID) (*Session, error)

	// CloseSession writes the closing columns only while the session is
	// still open and reports whether it did.
	CloseSession(ctx context.Context, s *Session) (bool, error)

	// ListClosed returns closed sessions, newest first.
	ListClosed(ctx context.Context, tenantID id.ID, limit int) ([]Session, error)

	InsertMovement(ctx context.Context, m *Movement) error
	GetMovement(ctx context.Context, tenantID, movementID id.ID) (*Movement, error)

	// MarkReversed flags a not yet reversed movement and reports whether it did.
	MarkReversed(ctx context.Context, tenantID, movementID id.ID) (bool, error)

	// ListMovements returns a session's movements in insertion order.
	ListMovements(ctx context.Context, tenantID, sessionID id.ID) ([]Movement, error)

	Totals(ctx context.Context, tenantID, sessionID id.ID) (Totals, error)
}

// Locker serializes session opening per tenant across processes. The
// repository's uniqueness guarantee stays authoritative without it.
type Locker interface {
	// Acquire returns ErrLockBusy while another holder owns key.
	Acquire(ctx context.Context, key string) (release func(context.Context), err error)
}
