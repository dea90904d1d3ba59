// Package handler exposes the conversation webhook over HTTP.
package handler

import (
	"complaints_backend/internal/session"
	"complaints_backend/internal/session/transport"
	"complaints_backend/platform/httpkit"
	"complaints_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for the conversation flow.
type Handler struct {
	manager *session.Manager
	val     *validator.Validator
}

// New creates a new session handler.
func New(manager *session.Manager, val *validator.Validator) *Handler {
	return &Handler{manager: manager, val: val}
}

// RegisterRoutes registers the conversation routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/events", h.HandleEvent)
}

// HandleEvent processes one inbound chat event and returns the reply the
// transport should render back to the citizen.
func (h *Handler) HandleEvent(c *gin.Context) {
	var req transport.InboundEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BadRequest(c, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.BadRequest(c, msgValidationFailed)
		return
	}

	reply, err := h.manager.HandleEvent(c.Request.Context(), session.InboundEvent{
		UserID:       req.UserID,
		ChatID:       req.ChatID,
		Kind:         session.EventKind(req.Kind),
		Text:         req.Text,
		CallbackData: req.CallbackData,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	actions := make([]transport.ActionResponse, 0, len(reply.Actions))
	for _, a := range reply.Actions {
		actions = append(actions, transport.ActionResponse{Label: a.Label, Data: a.Data})
	}

	httpkit.OK(c, transport.ReplyResponse{
		Text:        reply.Text,
		Actions:     actions,
		ComplaintID: reply.ComplaintID,
		Retryable:   reply.Retryable,
	})
}
