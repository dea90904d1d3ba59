package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"complaints_backend/internal/registry"
	"complaints_backend/platform/logger"

	"github.com/google/uuid"
)

// memStore is an in-memory Store for manager tests.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]Session)}
}

func (s *memStore) Get(_ context.Context, userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	copied := sess
	return &copied, nil
}

func (s *memStore) Save(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = *sess
	return nil
}

func (s *memStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// fakeCommitter records commits and can be told to fail.
type fakeCommitter struct {
	mu      sync.Mutex
	commits []CommitParams
	err     error
}

func (c *fakeCommitter) Commit(_ context.Context, p CommitParams) (uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return uuid.Nil, c.err
	}
	c.commits = append(c.commits, p)
	return uuid.New(), nil
}

func testManager(t *testing.T) (*Manager, *memStore, *fakeCommitter) {
	t.Helper()

	reg, err := registry.New([]registry.Department{
		{ID: "transport", Name: "Транспорт и дороги", Keywords: []string{"светофор", "дорога", "яма"}},
		{ID: "ecology", Name: "Экология", Keywords: []string{"мусор", "шум"}},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	store := newMemStore()
	committer := &fakeCommitter{}
	return NewManager(store, reg, committer, logger.New("development")), store, committer
}

func textEvent(userID, text string) InboundEvent {
	return InboundEvent{UserID: userID, ChatID: "chat-" + userID, Kind: EventText, Text: text}
}

func callbackEvent(userID, data string) InboundEvent {
	return InboundEvent{UserID: userID, ChatID: "chat-" + userID, Kind: EventCallback, CallbackData: data}
}

func TestStartThenDescriptionAutoRoutes(t *testing.T) {
	m, store, _ := testManager(t)
	ctx := context.Background()

	if _, err := m.HandleEvent(ctx, textEvent("u1", "/new")); err != nil {
		t.Fatalf("start: %v", err)
	}

	sess, _ := store.Get(ctx, "u1")
	if sess.State != StateAwaitingDescription {
		t.Fatalf("expected awaiting_description, got %s", sess.State)
	}

	reply, err := m.HandleEvent(ctx, textEvent("u1", "сломан светофор на перекрестке"))
	if err != nil {
		t.Fatalf("description: %v", err)
	}

	sess, _ = store.Get(ctx, "u1")
	if sess.State != StateAwaitingConfirmation {
		t.Fatalf("expected awaiting_confirmation, got %s", sess.State)
	}
	if sess.CandidateDepartmentID != "transport" {
		t.Fatalf("expected candidate transport, got %s", sess.CandidateDepartmentID)
	}
	if sess.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %f", sess.Confidence)
	}
	if len(reply.Actions) != 2 {
		t.Fatalf("expected confirm/choose-other actions, got %v", reply.Actions)
	}
}

func TestConfirmCommitsAutoRoutedComplaint(t *testing.T) {
	m, store, committer := testManager(t)
	ctx := context.Background()

	_, _ = m.HandleEvent(ctx, textEvent("u1", "/new"))
	_, _ = m.HandleEvent(ctx, textEvent("u1", "сломан светофор на перекрестке"))

	reply, err := m.HandleEvent(ctx, callbackEvent("u1", CallbackConfirmDepartment))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if reply.ComplaintID == nil {
		t.Fatal("expected committed complaint id in reply")
	}

	if len(committer.commits) != 1 {
		t.Fatalf("expected exactly one commit, got %d", len(committer.commits))
	}
	commit := committer.commits[0]
	if commit.DepartmentID != "transport" || !commit.AutoRouted {
		t.Fatalf("unexpected commit %+v", commit)
	}
	if commit.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0 recorded, got %f", commit.Confidence)
	}

	sess, _ := store.Get(ctx, "u1")
	if sess != nil {
		t.Fatalf("expected session discarded after commit, got %+v", sess)
	}
}

func TestLowConfidenceGoesToManualChoice(t *testing.T) {
	m, store, committer := testManager(t)
	ctx := context.Background()

	_, _ = m.HandleEvent(ctx, textEvent("u1", "/new"))
	reply, err := m.HandleEvent(ctx, textEvent("u1", "хочу выразить благодарность"))
	if err != nil {
		t.Fatalf("description: %v", err)
	}

	sess, _ := store.Get(ctx, "u1")
	if sess.State != StateAwaitingDepartmentChoice {
		t.Fatalf("expected awaiting_department_choice, got %s", sess.State)
	}
	if len(reply.Actions) != 2 {
		t.Fatalf("expected one action per routable department, got %v", reply.Actions)
	}

	if _, err := m.HandleEvent(ctx, callbackEvent("u1", "dept_ecology")); err != nil {
		t.Fatalf("selection: %v", err)
	}

	if len(committer.commits) != 1 {
		t.Fatalf("expected exactly one commit, got %d", len(committer.commits))
	}
	commit := committer.commits[0]
	if commit.DepartmentID != "ecology" || commit.AutoRouted {
		t.Fatalf("unexpected commit %+v", commit)
	}
}

func TestChooseOtherFromConfirmation(t *testing.T) {
	m, store, _ := testManager(t)
	ctx := context.Background()

	_, _ = m.HandleEvent(ctx, textEvent("u1", "/new"))
	_, _ = m.HandleEvent(ctx, textEvent("u1", "сломан светофор на перекрестке"))

	if _, err := m.HandleEvent(ctx, callbackEvent("u1", CallbackChooseDepartment)); err != nil {
		t.Fatalf("choose other: %v", err)
	}

	sess, _ := store.Get(ctx, "u1")
	if sess.State != StateAwaitingDepartmentChoice {
		t.Fatalf("expected awaiting_department_choice, got %s", sess.State)
	}
	if sess.Message == "" {
		t.Fatal("draft text must survive the switch to manual choice")
	}
}

func TestImplicitStartFromIdle(t *testing.T) {
	m, store, _ := testManager(t)
	ctx := context.Background()

	// Free text with no session classifies immediately.
	_, err := m.HandleEvent(ctx, textEvent("u1", "во дворе яма и разбита дорога"))
	if err != nil {
		t.Fatalf("implicit start: %v", err)
	}

	sess, _ := store.Get(ctx, "u1")
	if sess == nil || sess.State != StateAwaitingConfirmation {
		t.Fatalf("expected awaiting_confirmation, got %+v", sess)
	}
}

func TestCancelDiscardsDraftFromAnyState(t *testing.T) {
	m, store, committer := testManager(t)
	ctx := context.Background()

	_, _ = m.HandleEvent(ctx, textEvent("u1", "/new"))
	_, _ = m.HandleEvent(ctx, textEvent("u1", "сломан светофор на перекрестке"))

	if _, err := m.HandleEvent(ctx, textEvent("u1", "/cancel")); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	sess, _ := store.Get(ctx, "u1")
	if sess != nil {
		t.Fatal("expected session discarded on cancel")
	}
	if len(committer.commits) != 0 {
		t.Fatal("cancel must not commit anything")
	}
}

func TestCommitFailureKeepsSessionRetryable(t *testing.T) {
	m, store, committer := testManager(t)
	ctx := context.Background()

	_, _ = m.HandleEvent(ctx, textEvent("u1", "/new"))
	_, _ = m.HandleEvent(ctx, textEvent("u1", "сломан светофор на перекрестке"))

	committer.err = errors.New("store unavailable")
	reply, err := m.HandleEvent(ctx, callbackEvent("u1", CallbackConfirmDepartment))
	if err != nil {
		t.Fatalf("confirm with failing store: %v", err)
	}
	if !reply.Retryable {
		t.Fatal("expected retry-eligible reply on store failure")
	}

	sess, _ := store.Get(ctx, "u1")
	if sess == nil || sess.State != StateAwaitingConfirmation {
		t.Fatalf("session must stay in pre-commit state, got %+v", sess)
	}

	// Retry succeeds and commits exactly once.
	committer.err = nil
	if _, err := m.HandleEvent(ctx, callbackEvent("u1", CallbackConfirmDepartment)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(committer.commits) != 1 {
		t.Fatalf("expected exactly one commit after retry, got %d", len(committer.commits))
	}
}

func TestUnknownDepartmentSelectionRejected(t *testing.T) {
	m, store, committer := testManager(t)
	ctx := context.Background()

	_, _ = m.HandleEvent(ctx, textEvent("u1", "/new"))
	_, _ = m.HandleEvent(ctx, textEvent("u1", "хочу выразить благодарность"))

	if _, err := m.HandleEvent(ctx, callbackEvent("u1", "dept_nonexistent")); err != nil {
		t.Fatalf("bad selection: %v", err)
	}
	if len(committer.commits) != 0 {
		t.Fatal("unknown department must not commit")
	}

	sess, _ := store.Get(ctx, "u1")
	if sess.State != StateAwaitingDepartmentChoice {
		t.Fatalf("expected to stay in awaiting_department_choice, got %s", sess.State)
	}
}
