// Package service implements complaint lifecycle operations on top of the
// complaint store.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"complaints_backend/internal/complaints/domain"
	"complaints_backend/internal/events"
	"complaints_backend/internal/registry"
	"complaints_backend/platform/apperr"
	"complaints_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the complaint store interface the service consumes.
type Store interface {
	CreateWithHistory(ctx context.Context, c *domain.Complaint, h *domain.HistoryEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Complaint, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus, expected domain.Status) error
	SetResponse(ctx context.Context, id uuid.UUID, response string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Complaint, error)
	AppendHistory(ctx context.Context, e *domain.HistoryEntry) error
	History(ctx context.Context, complaintID uuid.UUID) ([]domain.HistoryEntry, error)
	StatusCounts(ctx context.Context, departmentID *string) (map[domain.Status]int, error)
}

// Service provides complaint operations.
type Service struct {
	store    Store
	registry *registry.Registry
	bus      events.Bus
	log      *logger.Logger
}

// New creates a new complaints service.
func New(store Store, reg *registry.Registry, log *logger.Logger) *Service {
	return &Service{store: store, registry: reg, log: log}
}

// SetEventBus wires the domain event bus.
func (s *Service) SetEventBus(bus events.Bus) {
	s.bus = bus
}

// CreateParams describes a complaint to commit, either from a completed
// conversation session or from an external ingestion feed.
type CreateParams struct {
	UserID          string
	ChatID          string
	Message         string
	DepartmentID    string
	Priority        domain.Priority
	AutoRouted      bool
	Confidence      float64
	MatchedKeywords []string
}

// Create commits a new complaint with its initial history entry in one
// transaction and publishes ComplaintCreated.
func (s *Service) Create(ctx context.Context, p CreateParams) (domain.Complaint, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return domain.Complaint{}, apperr.Validation("userId is required")
	}
	if strings.TrimSpace(p.Message) == "" {
		return domain.Complaint{}, apperr.Validation("message is required")
	}

	priority := p.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return domain.Complaint{}, apperr.Validation("unknown priority")
	}

	var departmentID *string
	if p.DepartmentID != "" && p.DepartmentID != registry.UnclassifiedID {
		if _, ok := s.registry.Get(p.DepartmentID); !ok {
			return domain.Complaint{}, apperr.Validation("unknown department")
		}
		departmentID = &p.DepartmentID
	}

	now := time.Now().UTC()
	deadline := now.Add(priority.SLA())

	complaint := domain.Complaint{
		ID:           uuid.New(),
		UserID:       p.UserID,
		ChatID:       p.ChatID,
		DepartmentID: departmentID,
		Message:      p.Message,
		Status:       domain.StatusNew,
		Priority:     priority,
		Deadline:     &deadline,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	comment := "created via conversation, manually routed"
	if p.AutoRouted {
		comment = fmt.Sprintf("created via conversation, auto-routed (confidence %.0f%%)", p.Confidence*100)
		if len(p.MatchedKeywords) > 0 {
			comment += ", keywords: " + strings.Join(p.MatchedKeywords, ", ")
		}
	}

	history := domain.HistoryEntry{
		ID:           uuid.New(),
		ComplaintID:  complaint.ID,
		Status:       domain.StatusNew,
		DepartmentID: departmentID,
		Comment:      comment,
		Actor:        domain.ActorConversation,
		CreatedAt:    now,
	}

	if err := s.store.CreateWithHistory(ctx, &complaint, &history); err != nil {
		return domain.Complaint{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.ComplaintCreated{
			BaseEvent:    events.NewBaseEvent(),
			ComplaintID:  complaint.ID,
			UserID:       complaint.UserID,
			DepartmentID: p.DepartmentID,
			AutoRouted:   p.AutoRouted,
			Confidence:   p.Confidence,
		})
	}

	return complaint, nil
}

// GetWithHistory returns a complaint and its audit trail.
func (s *Service) GetWithHistory(ctx context.Context, id uuid.UUID) (domain.Complaint, []domain.HistoryEntry, error) {
	complaint, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Complaint{}, nil, err
	}

	history, err := s.store.History(ctx, id)
	if err != nil {
		return domain.Complaint{}, nil, err
	}
	return complaint, history, nil
}

// ListByUser returns a citizen's complaints, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Complaint, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Validation("userId is required")
	}
	return s.store.ListByUser(ctx, userID)
}

// editorTransitions are the status moves an editor may apply. Escalation to
// overdue belongs to the escalation engine, not here.
var editorTransitions = map[domain.Status][]domain.Status{
	domain.StatusNew:        {domain.StatusInProgress, domain.StatusCompleted},
	domain.StatusInProgress: {domain.StatusCompleted},
	domain.StatusOverdue:    {domain.StatusInProgress, domain.StatusCompleted},
}

// TransitionParams describes an editor-driven status change.
type TransitionParams struct {
	ID       uuid.UUID
	Status   domain.Status
	Comment  string
	Response string
	Actor    string
}

// Transition applies an editor status change. The write is a compare-and-set
// against the status observed here; a concurrent change surfaces as
// apperr.Conflict and the editor retries against fresh state.
func (s *Service) Transition(ctx context.Context, p TransitionParams) (domain.Complaint, error) {
	if !p.Status.Valid() {
		return domain.Complaint{}, apperr.Validation("unknown status")
	}
	if p.Status == domain.StatusOverdue {
		return domain.Complaint{}, apperr.Validation("overdue is set by the escalation engine")
	}

	current, err := s.store.GetByID(ctx, p.ID)
	if err != nil {
		return domain.Complaint{}, err
	}

	if !transitionAllowed(current.Status, p.Status) {
		return domain.Complaint{}, apperr.Validation(
			fmt.Sprintf("cannot transition from %s to %s", current.Status, p.Status))
	}

	if err := s.store.UpdateStatus(ctx, p.ID, p.Status, current.Status); err != nil {
		return domain.Complaint{}, err
	}

	if p.Response != "" {
		if err := s.store.SetResponse(ctx, p.ID, p.Response); err != nil {
			return domain.Complaint{}, err
		}
	}

	actor := p.Actor
	if actor == "" {
		actor = domain.ActorEditor
	}
	history := domain.HistoryEntry{
		ID:           uuid.New(),
		ComplaintID:  p.ID,
		Status:       p.Status,
		DepartmentID: current.DepartmentID,
		Comment:      p.Comment,
		Actor:        actor,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.AppendHistory(ctx, &history); err != nil {
		// The transition landed; a missing audit row is logged, not rolled back.
		s.log.DatabaseError("append transition history", err)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.ComplaintStatusChanged{
			BaseEvent:   events.NewBaseEvent(),
			ComplaintID: p.ID,
			UserID:      current.UserID,
			OldStatus:   string(current.Status),
			NewStatus:   string(p.Status),
			Comment:     p.Comment,
		})
	}

	return s.store.GetByID(ctx, p.ID)
}

func transitionAllowed(from, to domain.Status) bool {
	for _, allowed := range editorTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Stats returns complaint counts per status, optionally per department.
func (s *Service) Stats(ctx context.Context, departmentID *string) (map[domain.Status]int, error) {
	if departmentID != nil {
		if _, ok := s.registry.Get(*departmentID); !ok {
			return nil, apperr.NotFound("department not found")
		}
	}
	return s.store.StatusCounts(ctx, departmentID)
}
