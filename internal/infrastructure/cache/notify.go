package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"distripos/internal/core/id"
	"distripos/internal/domain/events"
	"distripos/pkg/logger"
)

// Channel carries invalidations between processes sharing one database.
const Channel = "distripos_invalidate"

// Notification is the NOTIFY payload.
type Notification struct {
	TenantID id.ID    `json:"tenant_id"`
	Scopes   []string `json:"scopes"`
}

// PgNotifier publishes invalidations with pg_notify.
type PgNotifier struct {
	pool *pgxpool.Pool
}

var _ events.Invalidator = (*PgNotifier)(nil)

func NewPgNotifier(pool *pgxpool.Pool) *PgNotifier {
	return &PgNotifier{pool: pool}
}

func (n *PgNotifier) Invalidate(ctx context.Context, tenantID id.ID, scopes ...string) error {
	if len(scopes) == 0 {
		return nil
	}
	payload, err := json.Marshal(Notification{TenantID: tenantID, Scopes: scopes})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if _, err := n.pool.Exec(ctx, "SELECT pg_notify($1, $2)", Channel, string(payload)); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// Listener applies invalidations received on Channel to a local target.
type Listener struct {
	pool   *pgxpool.Pool
	target events.Invalidator

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

func NewListener(pool *pgxpool.Pool, target events.Invalidator) *Listener {
	return &Listener{pool: pool, target: target}
}

// Start begins listening in the background. Calling it twice is a no-op.
func (l *Listener) Start(ctx context.Context) {
	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()
	if l.started {
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.listenLoop()
	logger.Info(l.ctx, "cache listener started", "channel", Channel)
}

// Stop cancels the loop and waits for it to exit.
func (l *Listener) Stop() {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.cancel = nil
	l.lifecycleMu.Unlock()

	cancel()
	l.wg.Wait()
	logger.Info(context.Background(), "cache listener stopped")
}

func (l *Listener) listenLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			logger.Error(l.ctx, "acquire connection for LISTEN", "error", err)
			sleep(l.ctx, time.Second)
			continue
		}

		if _, err := conn.Exec(l.ctx, "LISTEN "+Channel); err != nil {
			logger.Error(l.ctx, "LISTEN failed", "error", err)
			conn.Release()
			sleep(l.ctx, time.Second)
			continue
		}

		l.wait(conn)
		conn.Release()
	}
}

func (l *Listener) wait(conn *pgxpool.Conn) {
	for {
		// Bounded wait so shutdown is noticed.
		ctx, cancel := context.WithTimeout(l.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			if ctx.Err() != nil {
				continue
			}
			// Broken connection: reacquire.
			logger.Warn(l.ctx, "wait for notification", "error", err)
			return
		}
		l.handle(l.ctx, notification.Payload)
	}
}

func (l *Listener) handle(ctx context.Context, payload string) {
	var n Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		logger.Warn(ctx, "malformed invalidation", "payload", payload, "error", err)
		return
	}
	if err := l.target.Invalidate(ctx, n.TenantID, n.Scopes...); err != nil {
		logger.Warn(ctx, "apply invalidation", "tenant_id", n.TenantID, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
