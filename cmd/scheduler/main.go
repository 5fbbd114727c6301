package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/credicuenta/debt-ledger/internal/app"
	"github.com/credicuenta/debt-ledger/internal/config"
	"github.com/credicuenta/debt-ledger/internal/logger"
	"github.com/credicuenta/debt-ledger/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	zlog := logger.Setup(cfg.Logging.Level, cfg.Logging.Format, "debt-ledger-scheduler")
	zlog.Info().Msg("starting ledger scheduler")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ledgerApp, err := app.NewShared(ctx, cfg, zlog)
	cancel()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize ledger")
	}
	defer func() {
		if err := ledgerApp.Close(); err != nil {
			zlog.Error().Err(err).Msg("failed to close connections")
		}
	}()

	// Initialize cron scheduler
	c := cron.New(
		cron.WithLocation(cfg.GetSchedulerLocation()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	jobs := scheduler.NewJobs(ledgerApp.Ledger, zlog, 10*time.Minute)
	if err := jobs.Register(c, cfg.GetSchedulerInterval()); err != nil {
		zlog.Fatal().Err(err).Msg("failed to schedule jobs")
	}

	// Start the scheduler
	c.Start()
	zlog.Info().Str("timezone", cfg.Scheduler.Timezone).Msg("scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info().Msg("shutting down scheduler")
	<-c.Stop().Done()
	zlog.Info().Msg("scheduler stopped")
}
