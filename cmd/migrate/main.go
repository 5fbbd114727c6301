package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/credicuenta/debt-ledger/internal/config"
	"github.com/credicuenta/debt-ledger/internal/logger"
	"github.com/credicuenta/debt-ledger/internal/migration"
)

func main() {
	var (
		direction = flag.String("direction", "up", "up, down, steps, version or force")
		steps     = flag.Int("steps", 0, "number of steps for -direction=steps (negative rolls back)")
		version   = flag.Int("version", -1, "version for -direction=force")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Business.StorageDriver != config.StorageDriverPostgres {
		log.Fatal().Str("storage", cfg.Business.StorageDriver).Msg("migrations only apply to postgres storage")
	}

	zlog := logger.Setup(cfg.Logging.Level, cfg.Logging.Format, "debt-ledger-migrate")

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m, err := migration.New(db.DB, cfg.Database.MigrationsPath, zlog)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize migrator")
	}
	defer m.Close()

	if err := run(m, *direction, *steps, *version); err != nil {
		zlog.Error().Err(err).Str("direction", *direction).Msg("migration failed")
		os.Exit(1)
	}
}

func run(m *migration.Migrator, direction string, steps, version int) error {
	switch direction {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps":
		if steps == 0 {
			return fmt.Errorf("-steps must not be zero")
		}
		return m.Steps(steps)
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
		return nil
	case "force":
		if version < 0 {
			return fmt.Errorf("-version is required for force")
		}
		return m.Force(version)
	default:
		return fmt.Errorf("unknown direction %q", direction)
	}
}
