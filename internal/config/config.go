// Package config loads runtime configuration from environment variables and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration. Every field maps 1:1 to an env var.
type Config struct {
	// Server
	Port     int    `mapstructure:"PORT"`
	Env      string `mapstructure:"APP_ENV"` // development | production
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Database
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	// Redis, optional: without it caching and the cash-open lock are disabled
	RedisURL    string        `mapstructure:"REDIS_URL"`
	CashLockTTL time.Duration `mapstructure:"CASH_LOCK_TTL"`

	// Auth
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTIssuer     string        `mapstructure:"JWT_ISSUER"`
	JWTAccessTTL  time.Duration `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTL time.Duration `mapstructure:"JWT_REFRESH_TTL"`

	IdempotencyTTL time.Duration `mapstructure:"IDEMPOTENCY_TTL"`

	// Bulk import
	ImportChunkSize    int           `mapstructure:"IMPORT_CHUNK_SIZE"`
	ImportChunkTimeout time.Duration `mapstructure:"IMPORT_CHUNK_TIMEOUT"`

	// Worker
	ReconcileInterval time.Duration `mapstructure:"RECONCILE_INTERVAL"`
	OutboxInterval    time.Duration `mapstructure:"OUTBOX_INTERVAL"`
}

var keys = []string{
	"PORT", "APP_ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "CASH_LOCK_TTL",
	"JWT_SECRET", "JWT_ISSUER", "JWT_ACCESS_TTL", "JWT_REFRESH_TTL",
	"IDEMPOTENCY_TTL", "IMPORT_CHUNK_SIZE", "IMPORT_CHUNK_TIMEOUT",
	"RECONCILE_INTERVAL", "OUTBOX_INTERVAL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CASH_LOCK_TTL", 10*time.Second)
	v.SetDefault("JWT_ISSUER", "distripos")
	v.SetDefault("JWT_ACCESS_TTL", 15*time.Minute)
	v.SetDefault("JWT_REFRESH_TTL", 7*24*time.Hour)
	v.SetDefault("IDEMPOTENCY_TTL", 24*time.Hour)
	v.SetDefault("IMPORT_CHUNK_SIZE", 100)
	v.SetDefault("IMPORT_CHUNK_TIMEOUT", 60*time.Second)
	v.SetDefault("RECONCILE_INTERVAL", time.Hour)
	v.SetDefault("OUTBOX_INTERVAL", 2*time.Second)
}

// Load reads configuration from environment variables (and optional .env file
// in the working directory).
func Load() (*Config, error) {
	return load(viper.New(), ".")
}

func load(v *viper.Viper, dir string) (*Config, error) {
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	v.AutomaticEnv()
	setDefaults(v)

	// Unmarshal only sees keys viper knows about; AutomaticEnv alone is lazy.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on missing required settings.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if c.ImportChunkSize <= 0 {
		return fmt.Errorf("IMPORT_CHUNK_SIZE must be positive")
	}
	return nil
}

// IsProduction reports APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
