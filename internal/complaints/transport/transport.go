// Package transport defines the HTTP request and response shapes for the
// complaints module.
package transport

import (
	"time"

	"complaints_backend/internal/complaints/domain"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateComplaintRequest is the request body for creating a complaint
// directly, bypassing the conversational flow.
type CreateComplaintRequest struct {
	UserID       string `json:"userId" validate:"required,min=1,max=128"`
	ChatID       string `json:"chatId" validate:"omitempty,max=128"`
	Message      string `json:"message" validate:"required,min=1,max=4000"`
	DepartmentID string `json:"departmentId" validate:"omitempty,max=64"`
	Priority     string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// UpdateStatusRequest is the request body for an editor status change.
type UpdateStatusRequest struct {
	Status   string `json:"status" validate:"required,oneof=new in_progress completed"`
	Comment  string `json:"comment" validate:"omitempty,max=2000"`
	Response string `json:"response" validate:"omitempty,max=4000"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// ComplaintResponse is the API representation of a complaint.
type ComplaintResponse struct {
	ID           uuid.UUID  `json:"id"`
	UserID       string     `json:"userId"`
	DepartmentID *string    `json:"departmentId"`
	Message      string     `json:"message"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	Response     *string    `json:"response,omitempty"`
	Deadline     time.Time  `json:"deadline"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// HistoryEntryResponse is one row of a complaint's audit trail.
type HistoryEntryResponse struct {
	ID           uuid.UUID `json:"id"`
	Status       string    `json:"status"`
	DepartmentID *string   `json:"departmentId"`
	Comment      string    `json:"comment,omitempty"`
	Actor        string    `json:"actor"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ComplaintDetailResponse is a complaint together with its history.
type ComplaintDetailResponse struct {
	Complaint ComplaintResponse      `json:"complaint"`
	History   []HistoryEntryResponse `json:"history"`
}

// StatsResponse is the per-status complaint breakdown.
type StatsResponse struct {
	DepartmentID *string        `json:"departmentId,omitempty"`
	Counts       map[string]int `json:"counts"`
	Total        int            `json:"total"`
}

// FromDomain converts a domain complaint to its API shape. The deadline is
// always populated from the effective deadline so clients never have to
// re-derive SLA math.
func FromDomain(c domain.Complaint) ComplaintResponse {
	return ComplaintResponse{
		ID:           c.ID,
		UserID:       c.UserID,
		DepartmentID: c.DepartmentID,
		Message:      c.Message,
		Status:       string(c.Status),
		Priority:     string(c.Priority),
		Response:     c.Response,
		Deadline:     c.EffectiveDeadline(),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		CompletedAt:  c.CompletedAt,
	}
}

// FromDomainList converts a slice of domain complaints.
func FromDomainList(cs []domain.Complaint) []ComplaintResponse {
	out := make([]ComplaintResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, FromDomain(c))
	}
	return out
}

// HistoryFromDomain converts a complaint's audit trail.
func HistoryFromDomain(entries []domain.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			ID:           e.ID,
			Status:       string(e.Status),
			DepartmentID: e.DepartmentID,
			Comment:      e.Comment,
			Actor:        e.Actor,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}
