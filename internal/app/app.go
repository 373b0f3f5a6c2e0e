// Package app is the composition root shared by the commands: it connects
// the infrastructure and wires every domain service on top of it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recruitment_backend/internal/applications"
	"recruitment_backend/internal/candidates"
	"recruitment_backend/internal/cvstorage"
	"recruitment_backend/internal/milestones"
	"recruitment_backend/internal/onboarding"
	"recruitment_backend/internal/processes"
	"recruitment_backend/internal/reference"
	"recruitment_backend/platform/config"
	"recruitment_backend/platform/db"
	"recruitment_backend/platform/logger"
	"recruitment_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// App holds the wired services.
type App struct {
	Config *config.Config
	Log    *logger.Logger
	Pool   *pgxpool.Pool

	Resolver     *reference.Resolver
	Candidates   *candidates.Service
	Applications *applications.Service
	Milestones   *milestones.Service
	Processes    *processes.Service
	Aggregator   *processes.Aggregator
	Onboarding   *onboarding.Pipeline

	redis *redis.Client
}

// New connects to PostgreSQL, and to Redis and MinIO when they are
// configured, and wires the services.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	var pool *pgxpool.Pool
	if err := Retry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("database connection established")

	a := &App{Config: cfg, Log: log, Pool: pool}

	var opts []reference.Option
	if cfg.IsRedisEnabled() {
		client, err := reference.NewRedisClient(ctx, cfg)
		if err != nil {
			log.Warn("redis unavailable; reference cache disabled", "error", err)
		} else {
			a.redis = client
			opts = append(opts, reference.WithCache(reference.NewRedisCache(client, cfg.GetReferenceCacheTTL())))
			log.Info("reference cache enabled", "ttl", cfg.GetReferenceCacheTTL())
		}
	}

	var cvs applications.CVStore
	if cfg.IsMinIOEnabled() {
		store, err := cvstorage.NewMinIOStore(cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("initialize cv storage: %w", err)
		}
		if err := Retry(ctx, log, "ensure cv bucket", 5, 2*time.Second, func() error {
			return store.EnsureBucket(ctx)
		}); err != nil {
			a.Close()
			return nil, fmt.Errorf("ensure cv bucket: %w", err)
		}
		cvs = store
		log.Info("cv storage initialized", "bucket", cfg.GetMinioBucketCVs())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; CV uploads disabled")
	}

	tx := db.NewTransactor(pool)
	val := validator.New()
	defaults := config.OnboardingDefaults(cfg)

	candidateRepo := candidates.NewRepository()
	applicationRepo := applications.NewRepository()
	processRepo := processes.NewRepository()
	milestoneRepo := milestones.NewRepository()

	a.Resolver = reference.NewResolver(reference.NewPostgresStore(), log, opts...)
	a.Candidates = candidates.NewService(candidateRepo, tx, pool, a.Resolver, val, defaults.PhoneRegion, log)
	a.Applications = applications.NewService(applicationRepo, tx, pool, a.Resolver, cvs, val, log)
	a.Milestones = milestones.NewService(milestoneRepo, pool, log)
	a.Processes = processes.NewService(processRepo, applicationRepo, a.Milestones, tx, pool, val, log)
	a.Aggregator = processes.NewAggregator(processRepo, milestoneRepo, pool, cfg.GetDueSoonHorizonDays(), log)

	deps := onboarding.Deps{
		Tx:           tx,
		Resolver:     a.Resolver,
		Candidates:   candidateRepo,
		Applications: applicationRepo,
		Processes:    a.Processes,
		Validator:    val,
		Defaults:     defaults,
		Log:          log,
		Now:          func() time.Time { return time.Now().In(cfg.GetTimezone()) },
	}
	if cvs != nil {
		deps.CVs = a.Applications
	}
	a.Onboarding = onboarding.NewPipeline(deps)

	return a, nil
}

// Close releases the connections opened by New.
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// Now is the current time in the configured timezone.
func (a *App) Now() time.Time {
	return time.Now().In(a.Config.GetTimezone())
}

// Retry runs fn up to attempts times, backing off quadratically from
// baseDelay between attempts.
func Retry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
