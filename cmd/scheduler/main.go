package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"repair_ops_backend/internal/collaborators"
	"repair_ops_backend/internal/email"
	"repair_ops_backend/internal/events"
	"repair_ops_backend/internal/notification"
	"repair_ops_backend/internal/notification/outbox"
	"repair_ops_backend/internal/scheduler"
	"repair_ops_backend/internal/whatsapp"
	"repair_ops_backend/platform/config"
	"repair_ops_backend/platform/db"
	"repair_ops_backend/platform/logger"
	"repair_ops_backend/platform/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
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

	eventBus := events.NewInMemoryBus(log)
	outboxRepo := outbox.New(pool)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}
	if !cfg.IsSMTPEnabled() {
		log.Warn("SMTP not configured; notification emails are dropped")
	}

	collaboratorClient := collaborators.New(cfg, log)

	notificationModule := notification.New(outboxRepo, sender, log)
	notificationModule.SetRefundRequester(collaboratorClient)
	notificationModule.SetPenaltyIssuer(collaboratorClient)
	if waClient := whatsapp.NewClient(cfg, log); waClient != nil {
		notificationModule.SetWhatsAppSender(waClient)
	}
	notificationModule.RegisterHandlers(eventBus)

	dispatcher, err := scheduler.NewOutboxDispatcher(cfg, outboxRepo, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	maintenance := scheduler.NewOutboxMaintenance(
		outboxRepo,
		log,
		getDurationEnv("OUTBOX_MAINTENANCE_INTERVAL", 10*time.Minute),
		getDurationEnv("OUTBOX_STALE_AFTER", 15*time.Minute),
		getDurationEnv("OUTBOX_SUCCEEDED_RETENTION", 14*24*time.Hour),
	)
	go maintenance.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
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

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
