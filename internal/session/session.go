// Package session implements the per-user conversational state machine that
// turns free-text messages into committed complaint records.
package session

import (
	"time"

	"github.com/google/uuid"
)

// State is a conversation session state.
type State string

const (
	StateIdle                     State = "idle"
	StateAwaitingDescription      State = "awaiting_description"
	StateAwaitingConfirmation     State = "awaiting_confirmation"
	StateAwaitingDepartmentChoice State = "awaiting_department_choice"
)

// Session is the ephemeral per-user conversation record. It carries the
// complaint draft until commit or cancellation and lives in the session
// store under an inactivity TTL; nothing in it survives a completed or
// abandoned conversation.
type Session struct {
	UserID                string    `json:"userId"`
	ChatID                string    `json:"chatId"`
	State                 State     `json:"state"`
	Message               string    `json:"message,omitempty"`
	CandidateDepartmentID string    `json:"candidateDepartmentId,omitempty"`
	Confidence            float64   `json:"confidence,omitempty"`
	MatchedKeywords       []string  `json:"matchedKeywords,omitempty"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// EventKind distinguishes inbound conversational events.
type EventKind string

const (
	EventText     EventKind = "text"
	EventCallback EventKind = "callback"
)

// InboundEvent is one event from the chat channel. The transport is opaque;
// only user identity, chat identity, and the payload matter here.
type InboundEvent struct {
	UserID       string
	ChatID       string
	Kind         EventKind
	Text         string
	CallbackData string
}

// Callback data and command conventions shared with the chat transport.
const (
	CallbackConfirmDepartment = "confirm_department"
	CallbackChooseDepartment  = "choose_department"
	CallbackCancel            = "cancel"
	callbackDeptPrefix        = "dept_"

	commandStart  = "/start"
	commandNew    = "/new"
	commandCancel = "/cancel"
)

// Action is a button the transport should present with a reply.
type Action struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Reply is what the conversation engine asks the transport to render.
type Reply struct {
	Text        string     `json:"text"`
	Actions     []Action   `json:"actions,omitempty"`
	ComplaintID *uuid.UUID `json:"complaintId,omitempty"`
	// Retryable marks a reply caused by a transient store failure: the
	// session did not advance and the user may repeat the action.
	Retryable bool `json:"retryable,omitempty"`
}
