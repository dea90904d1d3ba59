package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"complaints_backend/internal/events"
	"complaints_backend/internal/notification/outbox"
	"complaints_backend/internal/registry"
	"complaints_backend/platform/logger"

	"github.com/google/uuid"
)

// memOutbox records inserts and mirrors the notification_outbox schema: the
// (complaint_id, kind, day_bucket) uniqueness is partial, covering only
// deadline_reminder rows. A duplicate reminder insert without the dedup flag
// fails the way a unique violation would; with the flag it is suppressed.
type memOutbox struct {
	mu       sync.Mutex
	inserts  []outbox.InsertParams
	buckets  map[string]bool
	failNext error
}

func newMemOutbox() *memOutbox {
	return &memOutbox{buckets: make(map[string]bool)}
}

func (o *memOutbox) Insert(_ context.Context, p outbox.InsertParams) (uuid.UUID, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failNext != nil {
		err := o.failNext
		o.failNext = nil
		return uuid.Nil, false, err
	}
	if p.Kind == KindDeadlineReminder {
		runAt := p.RunAt
		if runAt.IsZero() {
			runAt = time.Now().UTC()
		}
		key := p.ComplaintID.String() + "|" + p.Kind + "|" + runAt.UTC().Truncate(24*time.Hour).Format("2006-01-02")
		if o.buckets[key] {
			if p.Dedup {
				return uuid.Nil, false, nil
			}
			return uuid.Nil, false, errors.New(`duplicate key value violates unique constraint "uq_notification_outbox_day_bucket" (SQLSTATE 23505)`)
		}
		o.buckets[key] = true
	}
	o.inserts = append(o.inserts, p)
	return uuid.New(), true, nil
}

func testModule(t *testing.T) (*Module, *memOutbox) {
	t.Helper()

	reg, err := registry.New([]registry.Department{
		{ID: "transport", Name: "Транспорт и дороги", ContactEmail: "transport@gorod.kz"},
		{ID: "ecology", Name: "Экология"},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	ob := newMemOutbox()
	return New(ob, reg, logger.New("development")), ob
}

func TestStatusChangeGoesToCitizenChat(t *testing.T) {
	m, ob := testModule(t)

	err := m.onStatusChanged(context.Background(), events.ComplaintStatusChanged{
		BaseEvent:   events.NewBaseEvent(),
		ComplaintID: uuid.New(),
		UserID:      "citizen-1",
		OldStatus:   "new",
		NewStatus:   "in_progress",
	})
	if err != nil {
		t.Fatalf("onStatusChanged: %v", err)
	}

	if len(ob.inserts) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(ob.inserts))
	}
	ins := ob.inserts[0]
	if ins.Kind != KindStatusChange {
		t.Fatalf("expected status_change, got %s", ins.Kind)
	}
	if ins.Recipient != ChatRecipient("citizen-1") {
		t.Fatalf("unexpected recipient %s", ins.Recipient)
	}
}

func TestOverdueNotifiesCitizenAndDepartment(t *testing.T) {
	m, ob := testModule(t)
	complaintID := uuid.New()

	err := m.onOverdue(context.Background(), events.ComplaintOverdue{
		BaseEvent:    events.NewBaseEvent(),
		ComplaintID:  complaintID,
		UserID:       "citizen-1",
		DepartmentID: "transport",
		Deadline:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("onOverdue: %v", err)
	}

	if len(ob.inserts) != 2 {
		t.Fatalf("expected citizen + department inserts, got %d", len(ob.inserts))
	}
	if ob.inserts[0].Recipient != ChatRecipient("citizen-1") {
		t.Fatalf("first insert should target the citizen, got %s", ob.inserts[0].Recipient)
	}
	if ob.inserts[1].Recipient != EmailRecipient("transport@gorod.kz") {
		t.Fatalf("second insert should target the department, got %s", ob.inserts[1].Recipient)
	}
	for _, ins := range ob.inserts {
		if ins.Kind != KindDeadlineExpired {
			t.Fatalf("expected deadline_expired, got %s", ins.Kind)
		}
		if ins.ComplaintID != complaintID {
			t.Fatalf("unexpected complaint id %s", ins.ComplaintID)
		}
	}
}

func TestOverdueSameDayInsertsAreNotDeduped(t *testing.T) {
	m, ob := testModule(t)
	complaintID := uuid.New()

	event := events.ComplaintOverdue{
		BaseEvent:    events.NewBaseEvent(),
		ComplaintID:  complaintID,
		UserID:       "citizen-1",
		DepartmentID: "transport",
		Deadline:     time.Now().UTC(),
	}

	// Both the citizen chat row and the department email row share the
	// complaint, kind, and calendar day; neither may collide with the other,
	// and a second sweep-side delivery attempt the same day must still land.
	if err := m.onOverdue(context.Background(), event); err != nil {
		t.Fatalf("first onOverdue: %v", err)
	}
	if err := m.onOverdue(context.Background(), event); err != nil {
		t.Fatalf("second onOverdue: %v", err)
	}

	if len(ob.inserts) != 4 {
		t.Fatalf("expected all 4 expiry inserts recorded, got %d", len(ob.inserts))
	}
}

func TestRepeatedStatusChangesSameDayAllRecorded(t *testing.T) {
	m, ob := testModule(t)
	complaintID := uuid.New()

	for _, status := range []string{"in_progress", "completed"} {
		err := m.onStatusChanged(context.Background(), events.ComplaintStatusChanged{
			BaseEvent:   events.NewBaseEvent(),
			ComplaintID: complaintID,
			UserID:      "citizen-1",
			OldStatus:   "new",
			NewStatus:   status,
		})
		if err != nil {
			t.Fatalf("onStatusChanged(%s): %v", status, err)
		}
	}

	if len(ob.inserts) != 2 {
		t.Fatalf("two transitions in one day must record two notifications, got %d", len(ob.inserts))
	}
}

func TestReminderDedupsWithinDay(t *testing.T) {
	m, ob := testModule(t)
	complaintID := uuid.New()

	event := events.DeadlineReminderDue{
		BaseEvent:    events.NewBaseEvent(),
		ComplaintID:  complaintID,
		UserID:       "citizen-1",
		DepartmentID: "transport",
		Deadline:     time.Now().UTC().Add(20 * time.Hour),
	}

	if err := m.onReminderDue(context.Background(), event); err != nil {
		t.Fatalf("first reminder: %v", err)
	}
	if err := m.onReminderDue(context.Background(), event); err != nil {
		t.Fatalf("second reminder: %v", err)
	}

	if len(ob.inserts) != 1 {
		t.Fatalf("expected one reminder per day, got %d", len(ob.inserts))
	}
	if !ob.inserts[0].Dedup {
		t.Fatal("reminder insert must carry the dedup flag")
	}
	if !strings.HasPrefix(ob.inserts[0].Recipient, "email:") {
		t.Fatalf("reminder must go to department email, got %s", ob.inserts[0].Recipient)
	}
}

func TestMissingContactEmailSkipsDepartmentNotification(t *testing.T) {
	m, ob := testModule(t)

	err := m.onReminderDue(context.Background(), events.DeadlineReminderDue{
		BaseEvent:    events.NewBaseEvent(),
		ComplaintID:  uuid.New(),
		UserID:       "citizen-1",
		DepartmentID: "ecology",
		Deadline:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("onReminderDue: %v", err)
	}
	if len(ob.inserts) != 0 {
		t.Fatalf("expected no inserts without a contact email, got %d", len(ob.inserts))
	}
}
