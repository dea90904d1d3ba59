package scheduler

import (
	"fmt"

	"complaints_backend/internal/kpi"
	"complaints_backend/platform/config"
	"complaints_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Rollup cron entries: daily at 06:00, weekly Monday, monthly on the 1st,
// quarterly on the 1st of Jan/Apr/Jul/Oct.
var rollupSchedules = []struct {
	spec string
	kind kpi.PeriodKind
}{
	{"0 6 * * *", kpi.PeriodDaily},
	{"0 6 * * 1", kpi.PeriodWeekly},
	{"0 6 1 * *", kpi.PeriodMonthly},
	{"0 6 1 1,4,7,10 *", kpi.PeriodQuarterly},
}

// Periodic registers the recurring jobs with asynq's scheduler.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

// NewPeriodic creates the periodic job scheduler: the deadline sweep on the
// configured interval plus the KPI rollup calendar.
func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
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

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})

	sweepSpec := fmt.Sprintf("@every %s", cfg.GetSweepInterval())
	if _, err := scheduler.Register(sweepSpec, NewEscalationSweepTask(), asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register sweep: %w", err)
	}

	for _, entry := range rollupSchedules {
		task, err := NewKPIRollupTask(KPIRollupPayload{PeriodKind: string(entry.kind)})
		if err != nil {
			return nil, err
		}
		if _, err := scheduler.Register(entry.spec, task, asynq.Queue(queue)); err != nil {
			return nil, fmt.Errorf("register %s rollup: %w", entry.kind, err)
		}
	}

	return &Periodic{scheduler: scheduler, log: log}, nil
}

// Run drives the scheduler until shutdown.
func (p *Periodic) Run() {
	if p == nil || p.scheduler == nil {
		return
	}
	if err := p.scheduler.Run(); err != nil {
		p.log.Error("periodic scheduler stopped", "error", err)
	}
}

// Shutdown stops the scheduler.
func (p *Periodic) Shutdown() {
	if p != nil && p.scheduler != nil {
		p.scheduler.Shutdown()
	}
}
