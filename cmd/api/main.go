package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hvac_dispatch_backend/internal/activity"
	"hvac_dispatch_backend/internal/adapters"
	"hvac_dispatch_backend/internal/adapters/storage"
	"hvac_dispatch_backend/internal/email"
	"hvac_dispatch_backend/internal/events"
	apphttp "hvac_dispatch_backend/internal/http"
	"hvac_dispatch_backend/internal/http/router"
	"hvac_dispatch_backend/internal/jobs"
	jobsrepo "hvac_dispatch_backend/internal/jobs/repository"
	"hvac_dispatch_backend/internal/maps"
	"hvac_dispatch_backend/internal/materials"
	"hvac_dispatch_backend/internal/notification"
	"hvac_dispatch_backend/internal/photos"
	photoservice "hvac_dispatch_backend/internal/photos/service"
	"hvac_dispatch_backend/internal/profiles"
	"hvac_dispatch_backend/internal/report"
	"hvac_dispatch_backend/internal/routes"
	"hvac_dispatch_backend/migrations"
	"hvac_dispatch_backend/platform/config"
	"hvac_dispatch_backend/platform/db"
	"hvac_dispatch_backend/platform/logger"
	"hvac_dispatch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.DatabaseError("run migrations", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg, log)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	photoStore := initPhotoStore(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	profilesModule := profiles.NewModule(pool)
	directory := adapters.NewDirectory(profilesModule.Repository())

	notificationModule := notification.NewModule(pool, profilesModule.Repository(), log)
	notificationModule.Subscribe(eventBus)
	defer notificationModule.Close()
	notifier := notificationModule.Dispatcher

	jobStore := jobsrepo.New(pool)
	activityModule := activity.NewModule(pool, adapters.NewJobParticipants(jobStore), val, log)

	jobsModule := jobs.NewModule(pool, val, cfg, jobs.Deps{
		Activity:  activityModule.Service,
		Notifier:  notifier,
		Directory: directory,
		Sender:    sender,
		Bus:       eventBus,
	}, log)

	routesModule := routes.NewModule(pool, jobsModule.Service, notifier, eventBus, val, log)
	jobsModule.Service.SetRouteFinder(routesModule.Service)

	photosModule := photos.NewModule(pool, val, photos.Deps{
		Jobs:     adapters.NewPhotoJobReader(jobStore),
		Store:    photoStore,
		Activity: activityModule.Service,
		Notifier: notifier,
		Bus:      eventBus,
	}, log)
	materialsModule := materials.NewModule(pool, adapters.NewMaterialJobReader(jobStore), val, log)

	jobsModule.Service.SetPhotoLister(adapters.NewJobPhotoLister(photosModule.Service, photoservice.ListURLTTL))
	jobsModule.Service.SetMaterialLister(adapters.NewJobMaterialLister(materialsModule.Service))

	reportModule := report.NewModule(
		adapters.NewReportJobSource(jobStore),
		adapters.NewReportPhotoSource(photosModule.Service),
		directory,
		cfg,
		log,
	)
	mapsModule := maps.NewModule(cfg, val, log)

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			profilesModule,
			jobsModule,
			routesModule,
			photosModule,
			materialsModule,
			activityModule,
			notificationModule,
			reportModule,
			mapsModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		// Open SSE streams would otherwise hold Shutdown until the timeout.
		notificationModule.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initPhotoStore returns nil when MinIO is not configured; photo endpoints
// then answer with a dependency error.
func initPhotoStore(ctx context.Context, cfg *config.Config, log *logger.Logger) storage.PhotoStore {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; photo storage disabled")
		return nil
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure job photo bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", storageSvc.Bucket())
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "bucket", storageSvc.Bucket())
	return storageSvc
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
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
