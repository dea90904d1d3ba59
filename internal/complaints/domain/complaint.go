// Package domain holds the complaint data model shared by the intake,
// escalation, and reporting modules.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusOverdue    Status = "overdue"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

// ActiveStatuses are the statuses the deadline sweep evaluates.
var ActiveStatuses = []Status{StatusNew, StatusInProgress}

// Priority determines the SLA window for a complaint.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// SLA windows by priority.
const (
	slaHigh   = 5 * 24 * time.Hour
	slaMedium = 10 * 24 * time.Hour
	slaLow    = 15 * 24 * time.Hour
)

// SLA returns the resolution window for the priority. Unknown priorities
// fall back to the medium window.
func (p Priority) SLA() time.Duration {
	switch p {
	case PriorityHigh:
		return slaHigh
	case PriorityLow:
		return slaLow
	default:
		return slaMedium
	}
}

// Absolute ceilings applied by the sweep regardless of the priority-derived
// deadline: complaints must leave "new" within 5 days and "in_progress"
// within 15 days.
const (
	CeilingNew        = 5 * 24 * time.Hour
	CeilingInProgress = 15 * 24 * time.Hour
)

// Complaint is the persisted citizen complaint record.
type Complaint struct {
	ID           uuid.UUID
	UserID       string
	ChatID       string
	DepartmentID *string
	Message      string
	Status       Status
	Priority     Priority
	Response     *string
	Deadline     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// EffectiveDeadline returns the deadline the escalation engine enforces:
// the stored deadline when one was set at creation, otherwise
// created_at + SLA(priority).
func (c *Complaint) EffectiveDeadline() time.Time {
	if c.Deadline != nil {
		return *c.Deadline
	}
	return c.CreatedAt.Add(c.Priority.SLA())
}

// PastCeiling reports whether the complaint violates the absolute
// per-status ceiling at the given instant.
func (c *Complaint) PastCeiling(now time.Time) bool {
	age := now.Sub(c.CreatedAt)
	switch c.Status {
	case StatusNew:
		return age > CeilingNew
	case StatusInProgress:
		return age > CeilingInProgress
	}
	return false
}

// HistoryEntry is an append-only audit record for a complaint. Entries are
// never edited or deleted once written.
type HistoryEntry struct {
	ID           uuid.UUID
	ComplaintID  uuid.UUID
	Status       Status
	DepartmentID *string
	Comment      string
	Actor        string
	CreatedAt    time.Time
}

// Actors recorded in history entries.
const (
	ActorConversation = "conversation"
	ActorEscalation   = "escalation_engine"
	ActorEditor       = "editor"
)
