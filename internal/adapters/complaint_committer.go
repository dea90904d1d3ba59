// Package adapters provides anti-corruption adapters between domain modules.
package adapters

import (
	"context"

	"complaints_backend/internal/complaints/service"
	"complaints_backend/internal/session"

	"github.com/google/uuid"
)

// ComplaintCommitter adapts the complaints service for the conversation
// session manager. It implements the session.Committer interface, keeping the
// session module decoupled from the complaints domain types.
type ComplaintCommitter struct {
	svc *service.Service
}

// NewComplaintCommitter creates a new adapter that wraps the complaints service.
func NewComplaintCommitter(svc *service.Service) *ComplaintCommitter {
	return &ComplaintCommitter{svc: svc}
}

// Commit persists a resolved conversation draft as a complaint.
func (a *ComplaintCommitter) Commit(ctx context.Context, p session.CommitParams) (uuid.UUID, error) {
	complaint, err := a.svc.Create(ctx, service.CreateParams{
		UserID:          p.UserID,
		ChatID:          p.ChatID,
		Message:         p.Message,
		DepartmentID:    p.DepartmentID,
		AutoRouted:      p.AutoRouted,
		Confidence:      p.Confidence,
		MatchedKeywords: p.MatchedKeywords,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return complaint.ID, nil
}

// Compile-time check that ComplaintCommitter implements session.Committer.
var _ session.Committer = (*ComplaintCommitter)(nil)
