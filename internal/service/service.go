package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/credicuenta/debt-ledger/internal/cache"
	"github.com/credicuenta/debt-ledger/internal/lock"
	"github.com/credicuenta/debt-ledger/internal/metrics"
	"github.com/credicuenta/debt-ledger/internal/repository"
	customError "github.com/credicuenta/debt-ledger/pkg/errors"
)

// OverpaymentPolicy decides what happens to the part of a debt payment that
// exceeds the associate's open debt
type OverpaymentPolicy string

const (
	// OverpaymentReject fails the whole payment
	OverpaymentReject OverpaymentPolicy = "reject"
	// OverpaymentReport applies what fits and returns the remainder to the caller
	OverpaymentReport OverpaymentPolicy = "report"
)

// IsValid checks if the policy is known
func (p OverpaymentPolicy) IsValid() bool {
	return p == OverpaymentReject || p == OverpaymentReport
}

// Settings are the business knobs of the ledger
type Settings struct {
	OverpaymentPolicy   OverpaymentPolicy
	MaxAgreementPeriods int
	DefaultThreshold    int
	MaxRetries          int
	RetryBackoff        time.Duration
	// ReversalWindow bounds how long a debt payment recorded while no
	// period was collecting can be reversed
	ReversalWindow time.Duration
}

// DefaultSettings mirrors the configuration defaults
func DefaultSettings() Settings {
	return Settings{
		OverpaymentPolicy:   OverpaymentReject,
		MaxAgreementPeriods: 36,
		DefaultThreshold:    2,
		MaxRetries:          3,
		RetryBackoff:        10 * time.Millisecond,
		ReversalWindow:      15 * 24 * time.Hour,
	}
}

// Option customizes a LedgerService
type Option func(*LedgerService)

// WithClock replaces time.Now, used by tests and the scheduler
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

// WithCache sets the debt summary cache
func WithCache(c cache.DebtCache) Option {
	return func(s *LedgerService) { s.cache = c }
}

// WithMetrics sets the metrics recorder
func WithMetrics(r metrics.Recorder) Option {
	return func(s *LedgerService) { s.metrics = r }
}

// LedgerService owns every debt, payment, agreement and statement operation
type LedgerService struct {
	store    repository.Store
	cache    cache.DebtCache
	metrics  metrics.Recorder
	locks    *lock.KeyedRWMutex
	settings Settings
	now      func() time.Time
}

func NewLedgerService(store repository.Store, settings Settings, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:    store,
		cache:    cache.NopDebtCache{},
		metrics:  metrics.Nop{},
		locks:    lock.NewKeyedRWMutex(),
		settings: settings,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutate runs fn as one unit of work holding the associate's write lock.
// Concurrency conflicts re-run fn from scratch; fn must not keep state
// across attempts other than what it returns through the closure.
func (s *LedgerService) mutate(ctx context.Context, operation string, associateID uuid.UUID, fn func(repository.Repositories) error) error {
	defer s.metrics.ObserveOperation(operation, time.Now())

	unlock := s.locks.Lock(associateID.String())
	defer unlock()

	err := s.retry(ctx, operation, func() error {
		return s.store.WithinAssociateTx(ctx, associateID, fn)
	})
	if err != nil {
		return storeError(err)
	}

	if err := s.cache.Invalidate(ctx, associateID); err != nil {
		log.Warn().Err(customError.WrapCacheError(err)).
			Str("associate_id", associateID.String()).
			Msg("failed to invalidate debt summary")
	}
	return nil
}

// read runs fn on a snapshot holding the associate's read lock
func (s *LedgerService) read(ctx context.Context, associateID uuid.UUID, fn func(repository.Repositories) error) error {
	unlock := s.locks.RLock(associateID.String())
	defer unlock()
	return storeError(s.store.WithinSnapshot(ctx, fn))
}

// snapshot runs fn on a snapshot without any associate lock
func (s *LedgerService) snapshot(ctx context.Context, fn func(repository.Repositories) error) error {
	return storeError(s.store.WithinSnapshot(ctx, fn))
}

func (s *LedgerService) retry(ctx context.Context, operation string, run func() error) error {
	for attempt := 0; ; attempt++ {
		err := run()
		if err == nil || !errors.Is(err, customError.ErrConcurrencyConflict) || attempt >= s.settings.MaxRetries {
			return err
		}

		s.metrics.TxRetried(operation)
		log.Debug().Err(err).Str("operation", operation).Int("attempt", attempt+1).Msg("retrying unit of work")

		backoff := s.settings.RetryBackoff * time.Duration(attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// storeError keeps business errors and context errors as they are and
// wraps everything else as a database failure
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := customError.As(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return customError.WrapDatabaseError(err)
}

// notFound converts a missing row into a NotFound error for entity
func notFound(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, repository.ErrNotFound) {
		return customError.WrapNotFound(entity, id.String())
	}
	return storeError(err)
}
