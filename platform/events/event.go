// Package events provides the event bus infrastructure the domain modules
// communicate over: complaint lifecycle changes and escalation sweep outcomes
// are published here and consumed by the notification module. The concrete
// event types live in internal/events; this package stays business-logic-free.
package events

import (
	"context"
	"time"
)

// Event is the interface every domain event implements.
type Event interface {
	// EventName uniquely identifies the event type, e.g.
	// "complaints.status_changed" or "escalation.complaint.overdue".
	EventName() string
	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time
}

// BaseEvent carries the fields shared by all events. Embed it and implement
// EventName to define a new event type.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a new base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler processes events of a specific type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes domain events to subscribed handlers.
type Bus interface {
	// Publish delivers an event to all handlers registered for its name.
	// Handlers run asynchronously; delivery failures are logged by the bus.
	Publish(ctx context.Context, event Event)

	// PublishSync delivers an event and waits for every handler. Used where
	// the publisher must know the event was durably handled, e.g. the
	// escalation sweep recording notification intent before reporting success.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler for the event name returned by
	// Event.EventName().
	Subscribe(eventName string, handler Handler)
}
