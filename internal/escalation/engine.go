// Package escalation enforces complaint deadlines: it escalates complaints
// past their SLA to overdue and raises reminders when a deadline is close.
package escalation

import (
	"context"
	"time"

	"complaints_backend/internal/complaints/domain"
	"complaints_backend/internal/events"
	"complaints_backend/platform/apperr"
	"complaints_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// reminderWindow is how close to the deadline a complaint must be before a
// reminder is raised.
const reminderWindow = 24 * time.Hour

// sweepWorkers caps how many complaints one sweep evaluates concurrently.
const sweepWorkers = 8

// Store is the complaint store interface the engine consumes.
type Store interface {
	ListActive(ctx context.Context, statuses []domain.Status) ([]domain.Complaint, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus, expected domain.Status) error
	AppendHistory(ctx context.Context, e *domain.HistoryEntry) error
}

// Summary reports what one sweep did.
type Summary struct {
	Scanned   int
	Escalated int
	Reminders int
}

// Engine runs deadline sweeps over active complaints.
type Engine struct {
	store Store
	bus   events.Bus
	log   *logger.Logger
}

// New creates a deadline escalation engine.
func New(store Store, bus events.Bus, log *logger.Logger) *Engine {
	return &Engine{store: store, bus: bus, log: log}
}

// RunSweep evaluates every active complaint against its effective deadline
// and the absolute per-status ceilings. Escalation uses a compare-and-set
// against the status observed during listing, so a sweep racing an editor or
// another sweep instance escalates each complaint at most once. Per-complaint
// failures are logged and the sweep continues.
func (e *Engine) RunSweep(ctx context.Context, now time.Time) (Summary, error) {
	complaints, err := e.store.ListActive(ctx, domain.ActiveStatuses)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Scanned: len(complaints)}
	results := make([]sweepResult, len(complaints))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepWorkers)
	for i := range complaints {
		i := i
		g.Go(func() error {
			res, err := e.sweepOne(gctx, &complaints[i], now)
			if err != nil {
				e.log.SweepError(complaints[i].ID.String(), err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	// Workers never return errors; Wait only surfaces context cancellation.
	if err := g.Wait(); err != nil {
		return summary, err
	}

	for _, res := range results {
		if res.escalated {
			summary.Escalated++
		}
		if res.reminded {
			summary.Reminders++
		}
	}

	e.log.Info("deadline sweep complete",
		"scanned", summary.Scanned,
		"escalated", summary.Escalated,
		"reminders", summary.Reminders)
	return summary, nil
}

type sweepResult struct {
	escalated bool
	reminded  bool
}

func (e *Engine) sweepOne(ctx context.Context, c *domain.Complaint, now time.Time) (sweepResult, error) {
	deadline := c.EffectiveDeadline()

	if now.After(deadline) || c.PastCeiling(now) {
		escalated, err := e.escalate(ctx, c, now, deadline)
		if err != nil {
			return sweepResult{}, err
		}
		return sweepResult{escalated: escalated}, nil
	}

	if remaining := deadline.Sub(now); remaining > 0 && remaining <= reminderWindow {
		e.publish(ctx, events.DeadlineReminderDue{
			BaseEvent:    events.NewBaseEvent(),
			ComplaintID:  c.ID,
			UserID:       c.UserID,
			DepartmentID: departmentID(c),
			Deadline:     deadline,
		})
		return sweepResult{reminded: true}, nil
	}

	return sweepResult{}, nil
}

// escalate moves the complaint to overdue. A CAS conflict means another
// actor already moved it; that is not an error, just nothing left to do.
func (e *Engine) escalate(ctx context.Context, c *domain.Complaint, now, deadline time.Time) (bool, error) {
	err := e.store.UpdateStatus(ctx, c.ID, domain.StatusOverdue, c.Status)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return false, nil
		}
		return false, err
	}

	history := domain.HistoryEntry{
		ID:           uuid.New(),
		ComplaintID:  c.ID,
		Status:       domain.StatusOverdue,
		DepartmentID: c.DepartmentID,
		Comment:      "deadline expired, escalated automatically",
		Actor:        domain.ActorEscalation,
		CreatedAt:    now.UTC(),
	}
	if err := e.store.AppendHistory(ctx, &history); err != nil {
		// Escalation landed; a missing audit row must not re-run it.
		e.log.DatabaseError("append escalation history", err)
	}

	e.publish(ctx, events.ComplaintOverdue{
		BaseEvent:    events.NewBaseEvent(),
		ComplaintID:  c.ID,
		UserID:       c.UserID,
		DepartmentID: departmentID(c),
		Deadline:     deadline,
	})
	return true, nil
}

// publish delivers sweep events synchronously so notification intent is
// durably recorded before the sweep reports success. Handler failures are
// logged; they never fail the sweep.
func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.PublishSync(ctx, event); err != nil {
		e.log.NotifyFailure(event.EventName(), "event", err)
	}
}

func departmentID(c *domain.Complaint) string {
	if c.DepartmentID == nil {
		return ""
	}
	return *c.DepartmentID
}
