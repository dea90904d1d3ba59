// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"complaints_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Complaint Domain Events
// =============================================================================

// ComplaintCreated is published when a complaint is committed from a
// conversation session or ingestion feed.
type ComplaintCreated struct {
	BaseEvent
	ComplaintID  uuid.UUID `json:"complaintId"`
	UserID       string    `json:"userId"`
	DepartmentID string    `json:"departmentId"`
	AutoRouted   bool      `json:"autoRouted"`
	Confidence   float64   `json:"confidence"`
}

func (e ComplaintCreated) EventName() string { return "complaints.created" }

// ComplaintStatusChanged is published when an editor moves a complaint
// through its lifecycle (new -> in_progress -> completed).
type ComplaintStatusChanged struct {
	BaseEvent
	ComplaintID uuid.UUID `json:"complaintId"`
	UserID      string    `json:"userId"`
	OldStatus   string    `json:"oldStatus"`
	NewStatus   string    `json:"newStatus"`
	Comment     string    `json:"comment,omitempty"`
}

func (e ComplaintStatusChanged) EventName() string { return "complaints.status_changed" }

// =============================================================================
// Escalation Domain Events
// =============================================================================

// ComplaintOverdue is published when the deadline sweep escalates a
// complaint past its SLA.
type ComplaintOverdue struct {
	BaseEvent
	ComplaintID  uuid.UUID `json:"complaintId"`
	UserID       string    `json:"userId"`
	DepartmentID string    `json:"departmentId,omitempty"`
	Deadline     time.Time `json:"deadline"`
}

func (e ComplaintOverdue) EventName() string { return "escalation.complaint.overdue" }

// DeadlineReminderDue is published when a complaint enters the final 24
// hours before its deadline and no reminder was sent in the current window.
type DeadlineReminderDue struct {
	BaseEvent
	ComplaintID  uuid.UUID `json:"complaintId"`
	UserID       string    `json:"userId"`
	DepartmentID string    `json:"departmentId,omitempty"`
	Deadline     time.Time `json:"deadline"`
}

func (e DeadlineReminderDue) EventName() string { return "escalation.deadline.reminder_due" }
