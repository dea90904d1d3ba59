package notification

import (
	"context"
	"fmt"
	"time"

	"complaints_backend/internal/events"
	"complaints_backend/internal/notification/outbox"
	"complaints_backend/internal/registry"
	"complaints_backend/platform/logger"

	"github.com/google/uuid"
)

// Enqueuer is the outbox insert interface the module consumes.
type Enqueuer interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, bool, error)
}

// Module subscribes to domain events and enqueues durable notifications.
// Delivery is the dispatcher's job; the handlers here only record intent.
type Module struct {
	outbox Enqueuer
	reg    *registry.Registry
	log    *logger.Logger
}

// New creates the notification module.
func New(ob Enqueuer, reg *registry.Registry, log *logger.Logger) *Module {
	return &Module{outbox: ob, reg: reg, log: log}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "notification"
}

// RegisterHandlers subscribes the module to the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ComplaintStatusChanged{}.EventName(), events.HandlerFunc(m.onStatusChanged))
	bus.Subscribe(events.ComplaintOverdue{}.EventName(), events.HandlerFunc(m.onOverdue))
	bus.Subscribe(events.DeadlineReminderDue{}.EventName(), events.HandlerFunc(m.onReminderDue))
}

func (m *Module) onStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ComplaintStatusChanged)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	_, _, err := m.outbox.Insert(ctx, outbox.InsertParams{
		ComplaintID: e.ComplaintID,
		Kind:        KindStatusChange,
		Recipient:   ChatRecipient(e.UserID),
		Payload: Payload{
			ComplaintID: e.ComplaintID,
			OldStatus:   e.OldStatus,
			NewStatus:   e.NewStatus,
			Response:    e.Comment,
		},
	})
	return err
}

func (m *Module) onOverdue(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ComplaintOverdue)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	deadline := e.Deadline
	payload := Payload{
		ComplaintID:  e.ComplaintID,
		DepartmentID: e.DepartmentID,
		NewStatus:    "overdue",
		Deadline:     &deadline,
	}

	// Citizen always hears about the escalation.
	if _, _, err := m.outbox.Insert(ctx, outbox.InsertParams{
		ComplaintID: e.ComplaintID,
		Kind:        KindDeadlineExpired,
		Recipient:   ChatRecipient(e.UserID),
		Payload:     payload,
	}); err != nil {
		return err
	}

	return m.enqueueDepartmentEmail(ctx, e.ComplaintID, KindDeadlineExpired, e.DepartmentID, payload, false)
}

func (m *Module) onReminderDue(ctx context.Context, event events.Event) error {
	e, ok := event.(events.DeadlineReminderDue)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	deadline := e.Deadline
	payload := Payload{
		ComplaintID:  e.ComplaintID,
		DepartmentID: e.DepartmentID,
		Deadline:     &deadline,
	}

	// Dedup keeps concurrent or repeated sweeps down to one reminder per
	// complaint per day.
	return m.enqueueDepartmentEmail(ctx, e.ComplaintID, KindDeadlineReminder, e.DepartmentID, payload, true)
}

func (m *Module) enqueueDepartmentEmail(ctx context.Context, complaintID uuid.UUID, kind, departmentID string, payload Payload, dedup bool) error {
	if departmentID == "" {
		return nil
	}
	dept, ok := m.reg.Get(departmentID)
	if !ok || dept.ContactEmail == "" {
		m.log.Warn("department has no contact email, skipping notification",
			"departmentId", departmentID, "kind", kind)
		return nil
	}

	payload.DepartmentName = dept.Name
	_, inserted, err := m.outbox.Insert(ctx, outbox.InsertParams{
		ComplaintID: complaintID,
		Kind:        kind,
		Recipient:   EmailRecipient(dept.ContactEmail),
		Payload:     payload,
		RunAt:       time.Now().UTC(),
		Dedup:       dedup,
	})
	if err != nil {
		return err
	}
	if dedup && !inserted {
		m.log.Debug("notification suppressed by dedup",
			"complaintId", complaintID, "kind", kind)
	}
	return nil
}
