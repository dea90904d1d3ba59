// Package handler exposes the complaints module over HTTP.
package handler

import (
	"complaints_backend/internal/complaints/domain"
	"complaints_backend/internal/complaints/service"
	"complaints_backend/internal/complaints/transport"
	"complaints_backend/platform/httpkit"
	"complaints_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid complaint id"
)

// Handler handles HTTP requests for complaints.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new complaints handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the complaint routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/stats", h.Stats)
	rg.GET("/user/:userId", h.ListByUser)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/status", h.UpdateStatus)
}

// Create registers a complaint directly, for ingestion paths that bypass the
// conversational flow.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BadRequest(c, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.BadRequest(c, msgValidationFailed)
		return
	}

	complaint, err := h.svc.Create(c.Request.Context(), service.CreateParams{
		UserID:       req.UserID,
		ChatID:       req.ChatID,
		Message:      req.Message,
		DepartmentID: req.DepartmentID,
		Priority:     domain.Priority(req.Priority),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.FromDomain(complaint))
}

// GetByID returns a complaint with its full history.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.BadRequest(c, msgInvalidID)
		return
	}

	complaint, history, err := h.svc.GetWithHistory(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ComplaintDetailResponse{
		Complaint: transport.FromDomain(complaint),
		History:   transport.HistoryFromDomain(history),
	})
}

// ListByUser returns a citizen's complaints, newest first.
func (h *Handler) ListByUser(c *gin.Context) {
	complaints, err := h.svc.ListByUser(c.Request.Context(), c.Param("userId"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromDomainList(complaints))
}

// UpdateStatus applies an editor status change.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.BadRequest(c, msgInvalidID)
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.BadRequest(c, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.BadRequest(c, msgValidationFailed)
		return
	}

	complaint, err := h.svc.Transition(c.Request.Context(), service.TransitionParams{
		ID:       id,
		Status:   domain.Status(req.Status),
		Comment:  req.Comment,
		Response: req.Response,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromDomain(complaint))
}

// Stats returns per-status complaint counts, optionally scoped to one
// department via ?department=<id>.
func (h *Handler) Stats(c *gin.Context) {
	var departmentID *string
	if dept := c.Query("department"); dept != "" {
		departmentID = &dept
	}

	counts, err := h.svc.Stats(c.Request.Context(), departmentID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make(map[string]int, len(counts))
	total := 0
	for status, n := range counts {
		out[string(status)] = n
		total += n
	}

	httpkit.OK(c, transport.StatsResponse{
		DepartmentID: departmentID,
		Counts:       out,
		Total:        total,
	})
}
