// Package audit defines the audit trail contract used by services for
// operations that change money or stock outside the normal append path.
package audit

import (
	"context"

	"distripos/internal/core/id"
)

// Action names recorded in the trail.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionClose   Action = "close"
	ActionVoid    Action = "void"
	ActionReverse Action = "reverse"
)

// Entry is one audited change. The tenant and user come from the context.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	Changes    map[string]any
}

// Recorder persists entries. Implementations must join the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }
