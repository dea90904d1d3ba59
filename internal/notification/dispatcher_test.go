package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"complaints_backend/internal/notification/outbox"
	"complaints_backend/platform/logger"

	"github.com/google/uuid"
)

// memDispatchOutbox serves one batch of claimed records and tracks marks.
type memDispatchOutbox struct {
	mu        sync.Mutex
	pending   []outbox.Record
	succeeded []uuid.UUID
	failed    map[uuid.UUID]string
}

func newMemDispatchOutbox(records ...outbox.Record) *memDispatchOutbox {
	return &memDispatchOutbox{pending: records, failed: make(map[uuid.UUID]string)}
}

func (o *memDispatchOutbox) ClaimPending(_ context.Context, limit int) ([]outbox.Record, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.pending) == 0 {
		return nil, nil
	}
	n := limit
	if n > len(o.pending) {
		n = len(o.pending)
	}
	batch := o.pending[:n]
	o.pending = o.pending[n:]
	return batch, nil
}

func (o *memDispatchOutbox) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.succeeded = append(o.succeeded, id)
	return nil
}

func (o *memDispatchOutbox) MarkFailed(_ context.Context, id uuid.UUID, cause string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed[id] = cause
	return nil
}

func (o *memDispatchOutbox) RequeueStale(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

// flakyNotifier fails for one specific record.
type flakyNotifier struct {
	failID uuid.UUID
}

func (n *flakyNotifier) Deliver(_ context.Context, rec outbox.Record) error {
	if rec.ID == n.failID {
		return errors.New("smtp unavailable")
	}
	return nil
}

func record(kind string) outbox.Record {
	payload, _ := json.Marshal(Payload{ComplaintID: uuid.New()})
	return outbox.Record{
		ID:          uuid.New(),
		ComplaintID: uuid.New(),
		Kind:        kind,
		Recipient:   EmailRecipient("dept@gorod.kz"),
		Payload:     payload,
		RunAt:       time.Now().UTC(),
		Status:      outbox.StatusEnqueued,
	}
}

func TestDrainMarksDeliveredAndFailed(t *testing.T) {
	good := record(KindDeadlineReminder)
	bad := record(KindDeadlineExpired)
	ob := newMemDispatchOutbox(good, bad)

	d := NewDispatcher(ob, &flakyNotifier{failID: bad.ID}, 100, time.Second, logger.New("development"))
	d.Drain(context.Background())

	if len(ob.succeeded) != 1 || ob.succeeded[0] != good.ID {
		t.Fatalf("expected %s marked succeeded, got %v", good.ID, ob.succeeded)
	}
	cause, ok := ob.failed[bad.ID]
	if !ok {
		t.Fatalf("expected %s marked failed", bad.ID)
	}
	if cause != "smtp unavailable" {
		t.Fatalf("unexpected failure cause %q", cause)
	}
}

func TestDrainStopsOnEmptyOutbox(t *testing.T) {
	ob := newMemDispatchOutbox()
	d := NewDispatcher(ob, NewLogNotifier(logger.New("development")), 100, time.Second, logger.New("development"))

	done := make(chan struct{})
	go func() {
		d.Drain(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("drain must return immediately when nothing is pending")
	}
}

func TestEmailNotifierRejectsUnknownChannel(t *testing.T) {
	n := NewEmailNotifier(nil, logger.New("development"))
	payload, _ := json.Marshal(Payload{})

	err := n.Deliver(context.Background(), outbox.Record{
		ID:        uuid.New(),
		Recipient: "carrier-pigeon:coop-7",
		Kind:      KindStatusChange,
		Payload:   payload,
	})
	if err == nil {
		t.Fatal("expected error for unknown recipient channel")
	}
}

func TestChatRecordsAreHandedToGatewayLog(t *testing.T) {
	n := NewEmailNotifier(nil, logger.New("development"))
	payload, _ := json.Marshal(Payload{ComplaintID: uuid.New(), NewStatus: "completed"})

	err := n.Deliver(context.Background(), outbox.Record{
		ID:        uuid.New(),
		Recipient: ChatRecipient("citizen-1"),
		Kind:      KindStatusChange,
		Payload:   payload,
	})
	if err != nil {
		t.Fatalf("chat records must not fail delivery: %v", err)
	}
}
