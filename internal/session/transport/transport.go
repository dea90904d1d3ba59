// Package transport defines the HTTP shapes for the conversation webhook.
package transport

import (
	"github.com/google/uuid"
)

// InboundEventRequest is one conversational event from a chat transport
// (bot gateway, web widget) forwarded to the intake state machine.
type InboundEventRequest struct {
	UserID       string `json:"userId" validate:"required,min=1,max=128"`
	ChatID       string `json:"chatId" validate:"omitempty,max=128"`
	Kind         string `json:"kind" validate:"required,oneof=text callback"`
	Text         string `json:"text" validate:"omitempty,max=4000"`
	CallbackData string `json:"callbackData" validate:"omitempty,max=256"`
}

// ActionResponse is one suggested button the transport should render.
type ActionResponse struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// ReplyResponse is the rendered reply for an inbound event.
type ReplyResponse struct {
	Text        string           `json:"text"`
	Actions     []ActionResponse `json:"actions,omitempty"`
	ComplaintID *uuid.UUID       `json:"complaintId,omitempty"`
	Retryable   bool             `json:"retryable,omitempty"`
}
