// Package app wires configuration, storage, queue and services into one
// container shared by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"bizzplus/internal/config"
	"bizzplus/internal/domain/auth"
	"bizzplus/internal/domain/catalog"
	"bizzplus/internal/domain/contact"
	"bizzplus/internal/domain/dashboard"
	"bizzplus/internal/domain/inventory"
	"bizzplus/internal/domain/order"
	"bizzplus/internal/domain/party"
	"bizzplus/internal/domain/voucher"
	v1 "bizzplus/internal/infrastructure/http/v1"
	"bizzplus/internal/infrastructure/http/v1/handlers"
	"bizzplus/internal/infrastructure/numerator"
	"bizzplus/internal/infrastructure/queue/redisqueue"
	"bizzplus/internal/infrastructure/storage/postgres"
	"bizzplus/internal/infrastructure/storage/postgres/catalog_repo"
	"bizzplus/internal/infrastructure/storage/postgres/document_repo"
	"bizzplus/internal/infrastructure/storage/postgres/register_repo"
	"bizzplus/internal/infrastructure/storage/postgres/report_repo"
	"bizzplus/internal/infrastructure/tally"
	"bizzplus/internal/worker"
	"bizzplus/pkg/logger"
)

// App holds process-wide resources and services.
type App struct {
	Config *config.Config
	Log    *logger.Logger

	Pool      *postgres.Pool
	TxManager *postgres.TxManager
	Redis     *redis.Client
	Queue     *redisqueue.Queue

	Idempotency *postgres.IdempotencyStore
	JWT         *auth.JWTService

	Parties   *party.Resolver
	Catalog   *catalog.Service
	Contacts  *contact.Service
	Inventory *inventory.Service
	Vouchers  *voucher.Service
	Orders    *order.Service
	Dashboard *dashboard.Service

	closers []func() error
}

// New opens the database pool and Redis client and builds every service.
// On failure, resources opened so far are released.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
	poolCfg.ApplicationName = cfg.App.Name
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	a.Pool, err = postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, func() error { a.Pool.Close(); return nil })
	a.TxManager = postgres.NewTxManager(a.Pool, cfg.Database.StatementTimeout)

	a.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, a.Redis.Close)
	if err = a.Redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	a.Queue = redisqueue.New(a.Redis, redisqueue.Options{
		Name:     cfg.Export.Queue,
		Attempts: cfg.Export.Attempts,
		Backoff:  cfg.Export.Backoff,
		LockTTL:  cfg.Export.LockTTL,
	})

	recorder, err := postgres.NewAuditRecorder(a.TxManager, postgres.DefaultCompressThreshold)
	if err != nil {
		return nil, fmt.Errorf("audit recorder: %w", err)
	}
	classifier, err := inventory.NewClassifier(cfg.Inventory.LowStockRule)
	if err != nil {
		return nil, fmt.Errorf("low stock rule: %w", err)
	}

	jwtCfg := auth.DefaultJWTConfig(cfg.JWT.Secret)
	if cfg.JWT.Issuer != "" {
		jwtCfg.Issuer = cfg.JWT.Issuer
	}
	if cfg.JWT.TTL > 0 {
		jwtCfg.AccessTokenTTL = cfg.JWT.TTL
	}
	a.JWT = auth.NewJWTService(jwtCfg)
	a.Idempotency = postgres.NewIdempotencyStore(a.TxManager, cfg.HTTP.IdempotencyTTL)

	skus := catalog_repo.NewSKURepo(a.TxManager)
	a.Parties = party.NewResolver(catalog_repo.NewPartyRepo(a.TxManager))
	a.Catalog = catalog.NewService(skus, a.Parties, recorder, a.TxManager)
	a.Contacts = contact.NewService(catalog_repo.NewContactRepo(a.TxManager), a.Parties, recorder, a.TxManager)
	a.Inventory = inventory.NewService(register_repo.NewBalanceRepo(a.TxManager), classifier, a.TxManager)
	a.Vouchers = voucher.NewService(
		document_repo.NewVoucherRepo(a.TxManager),
		a.Queue,
		tally.NewExporter(cfg.Export.TallyURL, cfg.Export.TallyTimeout),
		recorder,
		a.TxManager,
	)
	a.Orders = order.NewService(order.Deps{
		Repo:      document_repo.NewOrderRepo(a.TxManager),
		SKUs:      a.Catalog,
		Parties:   a.Parties,
		Stock:     a.Inventory,
		Vouchers:  a.Vouchers,
		Numerator: numerator.NewWithTxManager(a.TxManager),
		Audit:     recorder,
		TxManager: a.TxManager,
	})
	a.Dashboard = dashboard.NewService(report_repo.NewDashboardRepo(a.TxManager), a.Parties, a.Inventory, nil)

	return a, nil
}

// HealthChecks returns the readiness probes of the backing stores.
func (a *App) HealthChecks() map[string]handlers.HealthCheck {
	return map[string]handlers.HealthCheck{
		"postgres": func(ctx context.Context) error { return a.Pool.Ping(ctx) },
		"redis":    a.Queue.Ping,
	}
}

// Router builds the HTTP handler of the API server.
func (a *App) Router() http.Handler {
	return v1.NewRouter(v1.RouterConfig{
		Logger:           a.Log,
		JWTValidator:     a.JWT,
		Orders:           a.Orders,
		Catalog:          a.Catalog,
		Vouchers:         a.Vouchers,
		Dashboards:       a.Dashboard,
		Inventory:        a.Inventory,
		Contacts:         a.Contacts,
		Idempotency:      a.Idempotency,
		HealthChecks:     a.HealthChecks(),
		CORSAllowOrigins: a.Config.HTTP.CORSAllowOrigins,
		Development:      a.Config.App.IsDevelopment(),
	})
}

// Worker builds the voucher export worker. Unset export settings fall back
// to the worker defaults.
func (a *App) Worker() *worker.Worker {
	e := a.Config.Export
	return worker.New(a.Queue, a.Vouchers, a.Idempotency, worker.Config{
		Concurrency:   e.Concurrency,
		SweepInterval: e.SweepInterval,
		StaleAfter:    e.StaleAfter,
	}, a.Log)
}

// Close releases resources in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
