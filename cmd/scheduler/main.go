package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hvac_dispatch_backend/internal/activity"
	"hvac_dispatch_backend/internal/adapters"
	"hvac_dispatch_backend/internal/email"
	"hvac_dispatch_backend/internal/events"
	"hvac_dispatch_backend/internal/jobs"
	jobsrepo "hvac_dispatch_backend/internal/jobs/repository"
	"hvac_dispatch_backend/internal/notification"
	"hvac_dispatch_backend/internal/profiles"
	"hvac_dispatch_backend/internal/scheduler"
	"hvac_dispatch_backend/platform/config"
	"hvac_dispatch_backend/platform/db"
	"hvac_dispatch_backend/platform/logger"
	"hvac_dispatch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.DatabaseError("connect", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg, log)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Worker-side wiring: the checks only need the jobs service and the
	// notification dispatcher, no HTTP handlers.
	profilesRepo := profiles.NewRepository(pool)
	notificationModule := notification.NewModule(pool, profilesRepo, log)
	jobStore := jobsrepo.New(pool)
	activitySvc := activity.NewService(activity.NewRepository(pool), adapters.NewJobParticipants(jobStore), log)

	jobsModule := jobs.NewModule(pool, validator.New(), cfg, jobs.Deps{
		Activity:  activitySvc,
		Notifier:  notificationModule.Dispatcher,
		Directory: adapters.NewDirectory(profilesRepo),
		Sender:    sender,
		Bus:       eventBus,
	}, log)

	worker, err := scheduler.NewWorker(cfg, jobsModule.Service, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	if err := client.EnqueueChecks(ctx, scheduler.TriggerStartup); err != nil {
		log.Warn("failed to enqueue start-up checks", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return periodic.Run(gctx)
	})
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped", "error", err)
	}
	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
