package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// AgreementSweeper defaults agreements whose installments are overdue
type AgreementSweeper interface {
	DefaultOverdueAgreements(ctx context.Context, now time.Time) (int, error)
}

// Jobs runs the periodic ledger maintenance
type Jobs struct {
	sweeper AgreementSweeper
	logger  zerolog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewJobs(sweeper AgreementSweeper, logger zerolog.Logger, timeout time.Duration) *Jobs {
	return &Jobs{
		sweeper: sweeper,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

// Register schedules every job on c at the given interval
func (j *Jobs) Register(c *cron.Cron, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", interval)
	}

	if _, err := c.AddFunc("@every "+interval.String(), j.DefaultOverdueAgreements); err != nil {
		return fmt.Errorf("error scheduling agreement default job: %w", err)
	}

	j.logger.Info().Dur("interval", interval).Msg("cron jobs scheduled successfully")
	return nil
}

// DefaultOverdueAgreements runs one sweep and logs its outcome
func (j *Jobs) DefaultOverdueAgreements() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	started := j.now()
	j.logger.Info().Msg("running overdue agreement sweep")

	defaulted, err := j.sweeper.DefaultOverdueAgreements(ctx, started)
	if err != nil {
		j.logger.Error().Err(err).Int("defaulted", defaulted).Msg("overdue agreement sweep failed")
		return
	}

	j.logger.Info().
		Int("defaulted", defaulted).
		Dur("took", j.now().Sub(started)).
		Msg("overdue agreement sweep finished")
}
