package cache

import (
	"context"

	"distripos/internal/domain/events"
	"distripos/internal/infrastructure/storage/postgres"
	"distripos/pkg/logger"
)

// OutboxHandler replays the invalidation recorded with each outbox event.
// Services invalidate right after commit; the relay covers the cases where
// that call failed or the process died in between.
type OutboxHandler struct {
	invalidator events.Invalidator
}

var _ postgres.OutboxHandler = (*OutboxHandler)(nil)

func NewOutboxHandler(invalidator events.Invalidator) *OutboxHandler {
	return &OutboxHandler{invalidator: invalidator}
}

func (h *OutboxHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	payload, err := msg.Decode()
	if err != nil {
		// A payload that cannot be decoded will never succeed.
		logger.Error(ctx, "drop undecodable outbox message", "id", msg.ID, "error", err)
		return nil
	}
	if len(payload.Scopes) == 0 {
		return nil
	}
	return h.invalidator.Invalidate(ctx, msg.TenantID, payload.Scopes...)
}
