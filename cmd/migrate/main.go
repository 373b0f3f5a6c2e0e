package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recruitment_backend/internal/app"
	"recruitment_backend/platform/config"
	"recruitment_backend/platform/db"
	"recruitment_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	status := flag.Bool("status", false, "print the state of every migration instead of applying them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *status); err != nil {
		log.Error("migration failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, status bool) error {
	var pool *pgxpool.Pool
	if err := app.Retry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		return err
	}
	defer pool.Close()

	if status {
		return db.MigrationStatus(ctx, pool)
	}

	if !cfg.MigrationsEnabled {
		log.Warn("MIGRATIONS_ENABLED is false; nothing applied")
		return nil
	}

	log.Info("applying database migrations")
	if err := db.RunMigrations(ctx, pool); err != nil {
		return err
	}
	log.Info("database migrations complete")
	return nil
}
