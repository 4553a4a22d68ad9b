// Package tx defines the transaction contract domain services depend on.
// The implementation lives in infrastructure/storage/postgres.
package tx

import (
	"context"
	"time"
)

// Manager runs fn inside a database transaction. A non-nil error from fn
// rolls everything back; nested calls join the outer transaction.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// RunWithTimeout is RunInTransaction with a per-transaction statement
	// timeout, used by long batch work such as bulk import chunks.
	RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transactions for reports.
type ReadOnlyManager interface {
	Manager

	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
