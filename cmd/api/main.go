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

	"repair_ops_backend/internal/adapters"
	"repair_ops_backend/internal/adapters/storage"
	"repair_ops_backend/internal/appointments"
	"repair_ops_backend/internal/appointments/domain"
	"repair_ops_backend/internal/appointments/service"
	"repair_ops_backend/internal/events"
	apphttp "repair_ops_backend/internal/http"
	"repair_ops_backend/internal/http/router"
	"repair_ops_backend/internal/technicians"
	"repair_ops_backend/platform/config"
	"repair_ops_backend/platform/db"
	"repair_ops_backend/platform/lock"
	"repair_ops_backend/platform/logger"
	"repair_ops_backend/platform/telemetry"
	"repair_ops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const storageBucketEnsureErrPrefix = "failed to ensure storage bucket exists: "
const storageBucketEnsureErrMsg = "failed to ensure storage bucket exists"

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.MediaStore, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error(storageBucketEnsureErrMsg, "error", err, "bucket", bucket)
		panic(storageBucketEnsureErrPrefix + err.Error())
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	shutdownTracing, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize tracing", "error", err)
		panic("failed to initialize tracing: " + err.Error())
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	activityStream := events.NewActivityForwarder(cfg, log)
	if activityStream == nil {
		log.Warn("KAFKA_BROKERS not configured; activity stream disabled")
	}
	activityStream.RegisterHandlers(eventBus)
	defer func() { _ = activityStream.Close() }()

	locker, closeLocker, err := lock.NewFromConfig(cfg)
	if err != nil {
		log.Error("failed to initialize mutation locker", "error", err)
		panic("failed to initialize mutation locker: " + err.Error())
	}
	defer func() { _ = closeLocker() }()

	// Shared validator instance for dependency injection
	val := validator.New()

	apptOpts := []service.Option{
		service.WithLocker(locker, cfg.GetMutationLockTTL()),
		service.WithIssuePolicy(domain.IssuePolicy{
			GPSStaleAfter:  cfg.GetGPSStaleAfter(),
			PriceTolerance: cfg.GetPriceTolerance(),
		}),
	}
	if opt, ok := initMediaSigner(ctx, cfg, log); ok {
		apptOpts = append(apptOpts, opt)
	}

	// ========================================================================
	// Domain Modules
	// ========================================================================

	technicianModule := technicians.NewModule(pool)
	technicianDirectory := adapters.NewAppointmentsTechnicianDirectory(technicianModule.Service())

	appointmentsModule := appointments.NewModule(pool, val, technicianDirectory, eventBus, log, apptOpts...)

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   []apphttp.HealthChecker{pool},
		EventBus: eventBus,
		Modules: []apphttp.Module{
			appointmentsModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.Handler(app, engine),
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initMediaSigner enables presigned media URLs when MinIO is configured.
func initMediaSigner(ctx context.Context, cfg *config.Config, log *logger.Logger) (service.Option, bool) {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; media URLs disabled")
		return nil, false
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	bucket := cfg.GetMinioBucketAppointmentMedia()
	ensureBucket(ctx, log, storageSvc, "appointment-media", bucket)

	return service.WithMediaSigner(adapters.NewAppointmentsMediaPresigner(storageSvc, bucket)), true
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
