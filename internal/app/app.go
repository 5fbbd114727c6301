// Package app assembles the ledger from configuration. Both the API server
// and the scheduler build on it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/credicuenta/debt-ledger/internal/cache"
	"github.com/credicuenta/debt-ledger/internal/config"
	"github.com/credicuenta/debt-ledger/internal/metrics"
	"github.com/credicuenta/debt-ledger/internal/repository"
	"github.com/credicuenta/debt-ledger/internal/service"
)

// App holds the wired dependencies of a running process
type App struct {
	Config  *config.Config
	Store   repository.Store
	Redis   *redis.Client
	Metrics *metrics.LedgerMetrics
	Ledger  *service.LedgerService
}

// New connects storage and cache according to cfg and builds the ledger service
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Store:   store,
		Metrics: metrics.New(),
	}

	opts := []service.Option{service.WithMetrics(a.Metrics)}

	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		a.Redis = redis.NewClient(redisOpts)
		opts = append(opts, service.WithCache(cache.NewRedisDebtCache(a.Redis, cfg.GetSummaryCacheTTL())))
	} else {
		logger.Warn().Msg("REDIS_URL not set, debt summary cache disabled")
	}

	a.Ledger = service.NewLedgerService(store, Settings(cfg), opts...)

	logger.Info().
		Str("storage", cfg.Business.StorageDriver).
		Str("overpayment_policy", cfg.GetOverpaymentPolicy()).
		Bool("cache", a.Redis != nil).
		Msg("ledger initialized")

	return a, nil
}

// NewShared is New for processes that only act on state written by other
// processes, such as the scheduler. The memory store lives inside a single
// process, so it is refused.
func NewShared(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if cfg.Business.StorageDriver == config.StorageDriverMemory {
		return nil, fmt.Errorf("STORAGE_DRIVER %q is not shared between processes, use %q",
			config.StorageDriverMemory, config.StorageDriverPostgres)
	}
	return New(ctx, cfg, logger)
}

// Settings translates configuration into service settings
func Settings(cfg *config.Config) service.Settings {
	settings := service.DefaultSettings()
	settings.OverpaymentPolicy = service.OverpaymentPolicy(cfg.GetOverpaymentPolicy())
	settings.MaxAgreementPeriods = cfg.Business.AgreementMaxPeriods
	settings.DefaultThreshold = cfg.Business.AgreementDefaultThreshold
	settings.MaxRetries = cfg.Business.TxMaxRetries
	if window := cfg.GetPaymentReversalWindow(); window > 0 {
		settings.ReversalWindow = window
	}
	return settings
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.Business.StorageDriver == config.StorageDriverMemory {
		return repository.NewMemoryStore(), nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	return repository.NewPostgresStore(db), nil
}

// Close releases storage and cache connections
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
