// Package events defines the domain events written to the transactional
// outbox and the cache scopes they invalidate.
package events

import (
	"context"

	"distripos/internal/core/id"
)

// Cache scopes dropped after a write commits.
const (
	ScopeSales     = "sales"
	ScopeInventory = "inventory"
	ScopeCash      = "cash"
	ScopeDashboard = "dashboard"
	ScopeCustomers = "customers"
)

// Event types.
const (
	SaleRegistered   = "sale.registered"
	SaleVoided       = "sale.voided"
	CashClosed       = "cash.closed"
	PaymentReceived  = "receivable.payment"
	ProductsImported = "products.imported"
)

// Event is a fact recorded in the same transaction as the change it describes.
type Event struct {
	TenantID      id.ID
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Scopes        []string
	Payload       map[string]any
}

// Publisher appends an event to the outbox. It must run inside the
// transaction that made the change.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Invalidator drops cached views of a tenant. Failures are not fatal to the
// caller: the outbox relay repeats the invalidation.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID id.ID, scopes ...string) error
}

// NopInvalidator is used when no cache is configured.
type NopInvalidator struct{}

func (NopInvalidator) Invalidate(context.Context, id.ID, ...string) error { return nil }
