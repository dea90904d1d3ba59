package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	complaintrepo "complaints_backend/internal/complaints/repository"
	"complaints_backend/internal/email"
	"complaints_backend/internal/escalation"
	"complaints_backend/internal/kpi"
	kpirepo "complaints_backend/internal/kpi/repository"
	"complaints_backend/internal/notification"
	"complaints_backend/internal/notification/outbox"
	"complaints_backend/internal/registry"
	"complaints_backend/internal/scheduler"
	"complaints_backend/migrations"
	"complaints_backend/platform/config"
	"complaints_backend/platform/db"
	"complaints_backend/platform/events"
	"complaints_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dispatchInterval = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS, ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

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

	reg, err := registry.NewFromFile(cfg.GetDepartmentsFile())
	if err != nil {
		log.Error("failed to load department registry", "error", err, "file", cfg.DepartmentsFile)
		panic("failed to load department registry: " + err.Error())
	}

	// Sweep events land in the outbox; the dispatcher below delivers them.
	outboxRepo := outbox.New(pool)
	notificationModule := notification.New(outboxRepo, reg, log)
	notificationModule.RegisterHandlers(eventBus)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	notifier := notification.NewEmailNotifier(sender, log)
	dispatcher := notification.NewDispatcher(outboxRepo, notifier, cfg.GetNotifyRatePerSecond(), dispatchInterval, log)
	go dispatcher.Run(ctx)

	engine := escalation.New(complaintrepo.New(pool), eventBus, log)
	aggregator := kpi.NewAggregator(kpirepo.New(pool), log)

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go func() {
		<-ctx.Done()
		periodic.Shutdown()
	}()
	go periodic.Run()

	worker, err := scheduler.NewWorker(cfg, engine, aggregator, log)
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
