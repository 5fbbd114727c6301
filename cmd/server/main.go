package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/credicuenta/debt-ledger/internal/app"
	"github.com/credicuenta/debt-ledger/internal/config"
	"github.com/credicuenta/debt-ledger/internal/handler"
	"github.com/credicuenta/debt-ledger/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	zlog := logger.Setup(cfg.Logging.Level, cfg.Logging.Format, "debt-ledger-api")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ledgerApp, err := app.New(ctx, cfg, zlog)
	cancel()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize ledger")
	}
	defer func() {
		if err := ledgerApp.Close(); err != nil {
			zlog.Error().Err(err).Msg("failed to close connections")
		}
	}()

	ledgerHandler := handler.NewLedgerHandler(ledgerApp.Ledger)
	// a nil *redis.Client must not reach the handler as a non-nil interface
	var healthHandler *handler.HealthHandler
	if ledgerApp.Redis != nil {
		healthHandler = handler.NewHealthHandler(ledgerApp.Store, ledgerApp.Redis, cfg.GetHealthTimeout())
	} else {
		healthHandler = handler.NewHealthHandler(ledgerApp.Store, nil, cfg.GetHealthTimeout())
	}

	// Setup routes
	router := handler.NewRouter(ledgerHandler, healthHandler, ledgerApp.Metrics.Handler())

	server := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zlog.Info().Str("addr", server.Addr).Str("env", cfg.Server.Env).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	zlog.Info().Msg("server exited")
}
