// Package notification turns domain events into durable outbound
// notifications. Events are written to a Postgres outbox first; a dispatcher
// drains the outbox and delivers through the configured channels.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"complaints_backend/internal/email"
	"complaints_backend/internal/notification/outbox"
	"complaints_backend/platform/logger"

	"github.com/google/uuid"
)

// Notification kinds.
const (
	KindDeadlineReminder = "deadline_reminder"
	KindDeadlineExpired  = "deadline_expired"
	KindStatusChange     = "status_change"
)

// Recipient channel prefixes. Email recipients are delivered over SMTP;
// chat recipients are drained by the chat gateway, which is outside this
// service, so they are logged for pickup.
const (
	channelEmail = "email:"
	channelChat  = "chat:"
)

// EmailRecipient builds an email channel recipient.
func EmailRecipient(addr string) string { return channelEmail + addr }

// ChatRecipient builds a chat channel recipient.
func ChatRecipient(userID string) string { return channelChat + userID }

// Payload is the notification body stored in the outbox.
type Payload struct {
	ComplaintID    uuid.UUID  `json:"complaintId"`
	DepartmentID   string     `json:"departmentId,omitempty"`
	DepartmentName string     `json:"departmentName,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	OldStatus      string     `json:"oldStatus,omitempty"`
	NewStatus      string     `json:"newStatus,omitempty"`
	Response       string     `json:"response,omitempty"`
}

// Notifier delivers one claimed outbox record.
type Notifier interface {
	Deliver(ctx context.Context, rec outbox.Record) error
}

// EmailNotifier delivers email-channel records via the SMTP sender and logs
// chat-channel records for the gateway.
type EmailNotifier struct {
	sender email.Sender
	log    *logger.Logger
}

// NewEmailNotifier creates the default notifier.
func NewEmailNotifier(sender email.Sender, log *logger.Logger) *EmailNotifier {
	return &EmailNotifier{sender: sender, log: log}
}

// Deliver routes the record by recipient channel and kind.
func (n *EmailNotifier) Deliver(ctx context.Context, rec outbox.Record) error {
	var p Payload
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return fmt.Errorf("decode notification payload: %w", err)
	}

	switch {
	case strings.HasPrefix(rec.Recipient, channelEmail):
		return n.deliverEmail(ctx, strings.TrimPrefix(rec.Recipient, channelEmail), rec.Kind, p)
	case strings.HasPrefix(rec.Recipient, channelChat):
		n.log.Info("chat notification ready for gateway",
			"complaintId", p.ComplaintID,
			"userId", strings.TrimPrefix(rec.Recipient, channelChat),
			"kind", rec.Kind)
		return nil
	default:
		return fmt.Errorf("unknown recipient channel %q", rec.Recipient)
	}
}

func (n *EmailNotifier) deliverEmail(ctx context.Context, addr, kind string, p Payload) error {
	deadline := time.Time{}
	if p.Deadline != nil {
		deadline = *p.Deadline
	}

	switch kind {
	case KindDeadlineReminder:
		return n.sender.SendDeadlineReminderEmail(ctx, addr, p.ComplaintID.String(), p.DepartmentName, deadline)
	case KindDeadlineExpired:
		return n.sender.SendDeadlineExpiredEmail(ctx, addr, p.ComplaintID.String(), p.DepartmentName, deadline)
	case KindStatusChange:
		return n.sender.SendStatusChangeEmail(ctx, addr, p.ComplaintID.String(), p.NewStatus, p.Response)
	default:
		return fmt.Errorf("unknown notification kind %q", kind)
	}
}

// LogNotifier writes every notification to the log. Used when email is
// disabled and in tests.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Deliver logs the record.
func (n *LogNotifier) Deliver(_ context.Context, rec outbox.Record) error {
	n.log.Info("notification delivered to log",
		"id", rec.ID, "kind", rec.Kind, "recipient", rec.Recipient)
	return nil
}

var (
	_ Notifier = (*EmailNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
