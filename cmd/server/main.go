// Package main is the entry point for the distripos API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"distripos/internal/bootstrap"
	"distripos/internal/config"
	v1 "distripos/internal/infrastructure/http/v1"
	"distripos/pkg/logger"
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
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting distripos server", "env", cfg.Env)

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer app.Close()

	// Without redis the worker's invalidations arrive over LISTEN/NOTIFY.
	if listener := app.Listener(); listener != nil {
		listener.Start(ctx)
		defer listener.Stop()
	}

	router := v1.NewRouter(v1.RouterConfig{
		Services:     app.Services,
		JWTValidator: app.JWT,
		Tenants:      app.Tenants,
		Idempotency:  app.Idempotency,
		HealthChecks: app.HealthChecks(),
		Logger:       log,
		Debug:        !cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
