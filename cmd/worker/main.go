// Package main is the entry point for the distripos background worker: it
// relays the outbox, reconciles derived balances and prunes expired rows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"distripos/internal/bootstrap"
	"distripos/internal/config"
	"distripos/internal/domain/events"
	"distripos/internal/infrastructure/cache"
	"distripos/internal/infrastructure/storage/postgres"
	"distripos/pkg/logger"
)

const (
	outboxBatchSize = 100
	outboxRetention = 7 * 24 * time.Hour
	cleanupInterval = time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.FromEnv(cfg.Env, cfg.LogLevel))
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting distripos worker")

	app, err := bootstrap.New(ctx, cfg, log, bootstrap.WithApplicationName("distripos-worker"))
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer app.Close()

	worker := NewWorker(app)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	<-ctx.Done()
	log.Info("shutting down worker...")
	wg.Wait()
	log.Info("worker stopped")
}

// Worker runs the periodic jobs.
type Worker struct {
	app   *bootstrap.App
	relay *postgres.OutboxRelay
	log   *logger.Logger
}

func NewWorker(app *bootstrap.App) *Worker {
	// Redis readers and, through NOTIFY, in-process caches of every server.
	targets := cache.Multi{cache.NewPgNotifier(app.Pool.Unwrap())}
	if app.RedisCache != nil {
		targets = append(cache.Multi{app.RedisCache}, targets...)
	}
	var invalidator events.Invalidator = targets

	return &Worker{
		app:   app,
		relay: postgres.NewOutboxRelay(app.TxManager, outboxBatchSize, cache.NewOutboxHandler(invalidator)),
		log:   app.Log.WithComponent("worker"),
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	cfg := w.app.Config

	outboxTicker := time.NewTicker(cfg.OutboxInterval)
	defer outboxTicker.Stop()

	reconcileTicker := time.NewTicker(cfg.ReconcileInterval)
	defer reconcileTicker.Stop()

	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	w.log.Infow("worker running",
		"outbox_interval", cfg.OutboxInterval,
		"reconcile_interval", cfg.ReconcileInterval,
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-outboxTicker.C:
			w.processOutbox(ctx)
		case <-reconcileTicker.C:
			w.reconcile(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

// processOutbox drains the outbox in batches.
func (w *Worker) processOutbox(ctx context.Context) {
	total := 0
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		total += n
		if n < outboxBatchSize {
			break
		}
	}
	if total > 0 {
		w.log.Debugw("processed outbox", "count", total)
	}
}

func (w *Worker) reconcile(ctx context.Context) {
	report, err := w.app.Reconciliation.Run(ctx)
	if err != nil {
		w.log.Errorw("reconciliation failed", "error", err)
		return
	}
	if report.Clean() {
		w.log.Infow("reconciliation clean", "tenants", report.Tenants)
		return
	}
	w.log.Warnw("reconciliation found drift",
		"tenants", report.Tenants,
		"stock", len(report.Stock),
		"balances", len(report.Balances),
		"failed", len(report.Failed),
	)
}

func (w *Worker) cleanup(ctx context.Context) {
	if n, err := w.app.Idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}

	if n, err := w.app.Tokens.CleanupExpiredTokens(ctx, time.Now()); err != nil {
		w.log.Errorw("token cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up expired sessions", "count", n)
	}

	if n, err := w.relay.CleanupPublished(ctx, outboxRetention); err != nil {
		w.log.Errorw("outbox cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up published outbox", "count", n)
	}

	stats := w.app.Pool.Stats()
	w.log.Infow("database pool stats",
		"total", stats.TotalConns,
		"acquired", stats.AcquiredConns,
		"idle", stats.IdleConns,
		"max", stats.MaxConns,
		"empty_acquires", stats.EmptyAcquires,
	)
}
