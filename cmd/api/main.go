package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"complaints_backend/internal/adapters"
	"complaints_backend/internal/complaints"
	apphttp "complaints_backend/internal/http"
	"complaints_backend/internal/http/router"
	kpihandler "complaints_backend/internal/kpi/handler"
	kpirepo "complaints_backend/internal/kpi/repository"
	"complaints_backend/internal/notification"
	"complaints_backend/internal/notification/outbox"
	"complaints_backend/internal/registry"
	registryhandler "complaints_backend/internal/registry/handler"
	"complaints_backend/internal/session"
	sessionhandler "complaints_backend/internal/session/handler"
	"complaints_backend/migrations"
	"complaints_backend/platform/config"
	"complaints_backend/platform/db"
	"complaints_backend/platform/events"
	"complaints_backend/platform/logger"
	"complaints_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

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
		return db.RunMigrations(ctx, cfg, migrations.FS, ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
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
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Department registry backing the classifier and manual routing
	reg, err := registry.NewFromFile(cfg.GetDepartmentsFile())
	if err != nil {
		log.Error("failed to load department registry", "error", err, "file", cfg.DepartmentsFile)
		panic("failed to load department registry: " + err.Error())
	}
	log.Info("department registry loaded", "departments", len(reg.All()))

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing).
	// The API process only enqueues; the scheduler process delivers.
	notificationModule := notification.New(outbox.New(pool), reg, log)
	notificationModule.RegisterHandlers(eventBus)

	complaintsModule := complaints.NewModule(pool, reg, eventBus, val, log)

	// Anti-Corruption Layer: the session manager commits drafts through its
	// own Committer interface, not the complaints service directly.
	committer := adapters.NewComplaintCommitter(complaintsModule.Service())
	sessionModule, err := session.NewModule(cfg, reg, committer, log)
	if err != nil {
		log.Error("failed to initialize session module", "error", err)
		panic("failed to initialize session module: " + err.Error())
	}

	chatModule := sessionhandler.NewModule(sessionModule.Manager(), val)
	registryModule := registryhandler.NewModule(reg, log)
	kpiModule := kpihandler.NewModule(kpirepo.New(pool))

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			complaintsModule,
			chatModule,
			registryModule,
			kpiModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
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
