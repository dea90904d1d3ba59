package notification

import (
	"context"
	"time"

	"complaints_backend/internal/notification/outbox"
	"complaints_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	claimBatchSize = 50
	staleClaimAge  = 5 * time.Minute
)

// Outbox is the outbox store interface the dispatcher consumes.
type Outbox interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) error
	RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Dispatcher drains the outbox and hands records to the notifier. Delivery
// is rate limited so a burst of escalations cannot flood the SMTP relay.
type Dispatcher struct {
	outbox   Outbox
	notifier Notifier
	limiter  *rate.Limiter
	interval time.Duration
	log      *logger.Logger
}

// NewDispatcher creates an outbox dispatcher.
func NewDispatcher(ob Outbox, notifier Notifier, ratePerSecond float64, interval time.Duration, log *logger.Logger) *Dispatcher {
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Dispatcher{
		outbox:   ob,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond)+1),
		interval: interval,
		log:      log,
	}
}

// Run drains the outbox on a fixed interval until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := d.outbox.RequeueStale(ctx, staleClaimAge); err != nil {
				d.log.DatabaseError("requeue stale notifications", err)
			} else if n > 0 {
				d.log.Warn("requeued stale notifications", "count", n)
			}
			d.Drain(ctx)
		}
	}
}

// Drain claims and delivers one batch. Exposed separately so tests and the
// scheduler can trigger an immediate pass.
func (d *Dispatcher) Drain(ctx context.Context) {
	for {
		records, err := d.outbox.ClaimPending(ctx, claimBatchSize)
		if err != nil {
			d.log.DatabaseError("claim pending notifications", err)
			return
		}
		if len(records) == 0 {
			return
		}

		for _, rec := range records {
			if err := d.limiter.Wait(ctx); err != nil {
				return
			}
			d.deliver(ctx, rec)
		}

		if len(records) < claimBatchSize {
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, rec outbox.Record) {
	if err := d.notifier.Deliver(ctx, rec); err != nil {
		d.log.NotifyFailure(rec.Recipient, rec.Kind, err)
		if markErr := d.outbox.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
			d.log.DatabaseError("mark notification failed", markErr)
		}
		return
	}

	if err := d.outbox.MarkSucceeded(ctx, rec.ID); err != nil {
		d.log.DatabaseError("mark notification succeeded", err)
	}
}
