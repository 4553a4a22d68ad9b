// Package bootstrap builds the postgres-backed service graph shared by the
// server, the worker and the CLIs.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"distripos/internal/config"
	"distripos/internal/domain/accounting"
	"distripos/internal/domain/auth"
	"distripos/internal/domain/catalogs/customer"
	"distripos/internal/domain/catalogs/product"
	"distripos/internal/domain/catalogs/reference"
	"distripos/internal/domain/documents/sale"
	"distripos/internal/domain/events"
	"distripos/internal/domain/reconciliation"
	"distripos/internal/domain/registers/cash"
	"distripos/internal/domain/registers/receivable"
	"distripos/internal/domain/registers/stock"
	"distripos/internal/domain/reports"
	"distripos/internal/infrastructure/cache"
	v1 "distripos/internal/infrastructure/http/v1"
	"distripos/internal/infrastructure/http/v1/handlers"
	"distripos/internal/infrastructure/storage/postgres"
	"distripos/internal/infrastructure/storage/postgres/auth_repo"
	"distripos/internal/infrastructure/storage/postgres/catalog_repo"
	"distripos/internal/infrastructure/storage/postgres/document_repo"
	"distripos/internal/infrastructure/storage/postgres/register_repo"
	"distripos/internal/infrastructure/storage/postgres/report_repo"
	"distripos/pkg/logger"
	"distripos/pkg/numerator"
)

// App holds the connections and services of one process.
type App struct {
	Config *config.Config
	Log    *logger.Logger

	Pool      *postgres.Pool
	TxManager *postgres.TxManager

	// Redis is nil when REDIS_URL is empty.
	Redis      *redis.Client
	RedisCache *cache.RedisCache
	// LocalCache backs the dashboard without redis; it is refreshed by
	// NOTIFY messages through Listener.
	LocalCache *cache.LocalCache

	// Invalidator is what services call after a write.
	Invalidator events.Invalidator

	JWT            *auth.JWTService
	Tenants        *auth_repo.TenantRepo
	Tokens         *auth_repo.TokenRepo
	Idempotency    *postgres.IdempotencyStore
	Outbox         *postgres.OutboxPublisher
	Reconciliation *reconciliation.Service

	Services v1.Services
}

// Option adjusts the connection setup of one process.
type Option func(*postgres.PoolConfig)

// WithApplicationName tags the process's postgres sessions.
func WithApplicationName(name string) Option {
	return func(c *postgres.PoolConfig) { c.ApplicationName = name }
}

// New connects to postgres (and redis when configured) and wires every
// service.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	for _, opt := range opts {
		opt(&poolCfg)
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	app := &App{Config: cfg, Log: log, Pool: pool}
	if err := app.wire(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config
	txm := postgres.NewTxManager(a.Pool)
	a.TxManager = txm

	var (
		dashboards reports.Cache
		locker     cash.Locker
	)
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		a.Redis = rdb
		a.RedisCache = cache.NewRedisCache(rdb)
		a.Invalidator = a.RedisCache
		dashboards = a.RedisCache
		locker = cache.NewRedisLocker(rdb, cfg.CashLockTTL)
		a.Log.Infow("redis cache enabled")
	} else {
		a.LocalCache = cache.NewLocalCache()
		a.Invalidator = cache.Multi{a.LocalCache, cache.NewPgNotifier(a.Pool.Unwrap())}
		dashboards = a.LocalCache
		a.Log.Warnw("REDIS_URL not set, using in-process cache without cash-open lock")
	}

	recorder, err := postgres.NewAuditService(txm)
	if err != nil {
		return err
	}
	a.Outbox = postgres.NewOutboxPublisher(txm)
	a.Idempotency = postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL)
	numbers := numerator.New(func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	})

	jwtCfg := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtCfg.Issuer = cfg.JWTIssuer
	jwtCfg.AccessTokenTTL = cfg.JWTAccessTTL
	a.JWT = auth.NewJWTService(jwtCfg)

	a.Tenants = auth_repo.NewTenantRepo(txm)
	a.Tokens = auth_repo.NewTokenRepo(txm)
	authCfg := auth.DefaultServiceConfig()
	authCfg.RefreshTokenExpiry = cfg.JWTRefreshTTL
	authService := auth.NewService(auth.Repositories{
		Tenants: a.Tenants,
		Users:   auth_repo.NewUserRepo(txm),
		Roles:   auth_repo.NewRoleRepo(txm),
		Tokens:  a.Tokens,
	}, txm, a.JWT, recorder, authCfg)

	productRepo := catalog_repo.NewProductRepo(txm)
	customerRepo := catalog_repo.NewCustomerRepo(txm)
	ledger := stock.NewLedger(register_repo.NewStockRepo(txm))
	refs := reference.NewService(catalog_repo.NewReferenceRepo(txm), txm)

	cashService := cash.NewService(cash.ServiceConfig{
		Repo:        register_repo.NewCashRepo(txm),
		TxManager:   txm,
		Locker:      locker,
		Publisher:   a.Outbox,
		Audit:       recorder,
		Invalidator: a.Invalidator,
	})
	receivables := receivable.NewService(register_repo.NewReceivableRepo(txm), cashService, txm, a.Outbox, a.Invalidator)

	a.Services = v1.Services{
		Auth: authService,
		Products: product.NewService(product.ServiceConfig{
			Repo:               productRepo,
			Ledger:             ledger,
			References:         refs,
			TxManager:          txm,
			Audit:              recorder,
			Invalidator:        a.Invalidator,
			ImportChunkSize:    cfg.ImportChunkSize,
			ImportChunkTimeout: cfg.ImportChunkTimeout,
		}),
		References:  refs,
		Customers:   customer.NewService(customerRepo, txm, recorder, a.Invalidator),
		Receivables: receivables,
		Sales: sale.NewService(sale.ServiceConfig{
			Repo:        document_repo.NewSaleRepo(txm),
			Products:    productRepo,
			Customers:   customerRepo,
			Stock:       ledger,
			Cash:        cashService,
			Receivable:  receivables,
			Numberer:    numbers,
			TxManager:   txm,
			Publisher:   a.Outbox,
			Audit:       recorder,
			Invalidator: a.Invalidator,
		}),
		Cash:       cashService,
		Accounting: accounting.NewService(report_repo.NewAccountingRepo(txm), txm, recorder, a.Invalidator),
		Reports:    reports.NewService(report_repo.NewReportRepo(txm), dashboards),
	}
	a.Reconciliation = reconciliation.NewService(report_repo.NewReconciliationRepo(txm), txm)
	return nil
}

// Listener returns the NOTIFY listener feeding LocalCache, or nil when redis
// is in use.
func (a *App) Listener() *cache.Listener {
	if a.LocalCache == nil {
		return nil
	}
	return cache.NewListener(a.Pool.Unwrap(), a.LocalCache)
}

// HealthChecks lists the dependencies probed by /health/ready.
func (a *App) HealthChecks() map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{"database": a.Pool}
	if a.RedisCache != nil {
		checks["redis"] = a.RedisCache
	}
	return checks
}

// Close releases connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warnw("close redis", "error", err)
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
