// Package config loads process configuration from an optional YAML file and
// BIZZPLUS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Export    ExportConfig
	Inventory InventoryConfig
}

// AppConfig holds application-specific settings.
type AppConfig struct {
	Name string
	Env  string
	Port string
	// AutoMigrate applies pending migrations on server start.
	AutoMigrate bool
}

// IsDevelopment reports whether the app runs in development mode.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == "development"
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL              string
	MaxConns         int32
	MinConns         int32
	StatementTimeout time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds access token settings.
type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string
	Development bool
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	CORSAllowOrigins []string
	IdempotencyTTL   time.Duration
}

// ExportConfig controls the voucher export queue and worker.
type ExportConfig struct {
	Queue       string
	Attempts    int
	Backoff     time.Duration
	Concurrency int
	LockTTL     time.Duration
	// SweepInterval and StaleAfter drive re-enqueueing of vouchers stuck in queued.
	SweepInterval time.Duration
	StaleAfter    time.Duration
	TallyURL      string
	TallyTimeout  time.Duration
}

// InventoryConfig holds stock alert settings.
type InventoryConfig struct {
	// LowStockRule is a CEL expression over on_hand and reserved.
	LowStockRule string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bizzplus")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.auto_migrate", false)

	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.statement_timeout", 30*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.issuer", "bizzplus")
	v.SetDefault("jwt.ttl", 15*time.Minute)

	v.SetDefault("log.level", "info")

	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 30*time.Second)
	v.SetDefault("http.cors_allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("http.idempotency_ttl", 10*time.Minute)

	v.SetDefault("export.queue", "voucher-export")
	v.SetDefault("export.attempts", 3)
	v.SetDefault("export.backoff", 2*time.Second)
	v.SetDefault("export.concurrency", 5)
	v.SetDefault("export.lock_ttl", time.Minute)
	v.SetDefault("export.sweep_interval", time.Minute)
	v.SetDefault("export.stale_after", 5*time.Minute)
	v.SetDefault("export.tally_timeout", 10*time.Second)

	v.SetDefault("inventory.low_stock_rule", "on_hand > 0.0 && on_hand <= 10.0")
}

// Load reads configuration.
// Priority (highest to lowest):
// 1. Environment variables with BIZZPLUS_ prefix (e.g. BIZZPLUS_DATABASE_URL)
// 2. config.yaml in the working directory or /etc/bizzplus
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/bizzplus")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	v.SetEnvPrefix("BIZZPLUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		App: AppConfig{
			Name:        v.GetString("app.name"),
			Env:         v.GetString("app.env"),
			Port:        v.GetString("app.port"),
			AutoMigrate: v.GetBool("app.auto_migrate"),
		},
		Database: DatabaseConfig{
			URL:              v.GetString("database.url"),
			MaxConns:         v.GetInt32("database.max_conns"),
			MinConns:         v.GetInt32("database.min_conns"),
			StatementTimeout: v.GetDuration("database.statement_timeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
			TTL:    v.GetDuration("jwt.ttl"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetString("app.env") == "development",
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			IdempotencyTTL:   v.GetDuration("http.idempotency_ttl"),
		},
		Export: ExportConfig{
			Queue:         v.GetString("export.queue"),
			Attempts:      v.GetInt("export.attempts"),
			Backoff:       v.GetDuration("export.backoff"),
			Concurrency:   v.GetInt("export.concurrency"),
			LockTTL:       v.GetDuration("export.lock_ttl"),
			SweepInterval: v.GetDuration("export.sweep_interval"),
			StaleAfter:    v.GetDuration("export.stale_after"),
			TallyURL:      v.GetString("export.tally_url"),
			TallyTimeout:  v.GetDuration("export.tally_timeout"),
		},
		Inventory: InventoryConfig{
			LowStockRule: v.GetString("inventory.low_stock_rule"),
		},
	}
}

// Validate checks required settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Export.Attempts < 1 {
		errs = append(errs, errors.New("export.attempts must be at least 1"))
	}
	if c.Export.Concurrency < 1 {
		errs = append(errs, errors.New("export.concurrency must be at least 1"))
	}
	return errors.Join(errs...)
}
