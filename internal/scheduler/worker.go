package scheduler

import (
	"context"
	"fmt"
	"time"

	"complaints_backend/internal/escalation"
	"complaints_backend/internal/kpi"
	"complaints_backend/platform/config"
	"complaints_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker consumes scheduled tasks and drives the escalation engine and KPI
// aggregator. Returning an error from a handler hands the task back to asynq
// for retry with backoff.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	engine     *escalation.Engine
	aggregator *kpi.Aggregator
	log        *logger.Logger
}

// NewWorker creates the task worker.
func NewWorker(cfg config.SchedulerConfig, engine *escalation.Engine, aggregator *kpi.Aggregator, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		engine:     engine,
		aggregator: aggregator,
		log:        log,
	}

	mux.HandleFunc(TaskEscalationSweep, w.handleEscalationSweep)
	mux.HandleFunc(TaskKPIRollup, w.handleKPIRollup)

	return w, nil
}

func (w *Worker) handleEscalationSweep(ctx context.Context, _ *asynq.Task) error {
	summary, err := w.engine.RunSweep(ctx, time.Now().UTC())
	if err != nil {
		// Listing failed; let asynq retry the whole sweep.
		return err
	}
	w.log.Info("scheduled sweep finished",
		"scanned", summary.Scanned,
		"escalated", summary.Escalated,
		"reminders", summary.Reminders)
	return nil
}

func (w *Worker) handleKPIRollup(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseKPIRollupPayload(task)
	if err != nil {
		return err
	}

	_, err = w.aggregator.RunRollup(ctx, kpi.PeriodKind(payload.PeriodKind), time.Now().UTC())
	return err
}

// Run serves tasks until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
