package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"complaints_backend/internal/classifier"
	"complaints_backend/internal/registry"
	"complaints_backend/platform/apperr"
	"complaints_backend/platform/logger"

	"github.com/google/uuid"
)

// CommitParams describes a resolved draft ready for persistence.
type CommitParams struct {
	UserID          string
	ChatID          string
	Message         string
	DepartmentID    string
	AutoRouted      bool
	Confidence      float64
	MatchedKeywords []string
}

// Committer persists a committed complaint draft. Implemented by the
// complaints service; the write is transactional, so a failed commit leaves
// no partial record behind.
type Committer interface {
	Commit(ctx context.Context, p CommitParams) (uuid.UUID, error)
}

// Manager drives one state machine per user identity. Events for the same
// user are processed strictly one at a time; different users proceed in
// parallel.
type Manager struct {
	store     Store
	registry  *registry.Registry
	committer Committer
	log       *logger.Logger

	// Per-user mutexes. Entries are never removed; the map is bounded by
	// the number of distinct users seen by this process.
	locks sync.Map
}

// NewManager creates a conversation session manager.
func NewManager(store Store, reg *registry.Registry, committer Committer, log *logger.Logger) *Manager {
	return &Manager{
		store:     store,
		registry:  reg,
		committer: committer,
		log:       log,
	}
}

func (m *Manager) userLock(userID string) *sync.Mutex {
	lock, _ := m.locks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// HandleEvent processes one inbound conversational event and returns the
// reply the transport should render.
func (m *Manager) HandleEvent(ctx context.Context, ev InboundEvent) (Reply, error) {
	if ev.UserID == "" {
		return Reply{}, apperr.Validation("userId is required")
	}

	lock := m.userLock(ev.UserID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Get(ctx, ev.UserID)
	if err != nil {
		return Reply{}, err
	}
	if sess == nil {
		// Expired or unknown sessions restart at idle.
		sess = &Session{UserID: ev.UserID, ChatID: ev.ChatID, State: StateIdle}
	}
	sess.ChatID = ev.ChatID

	if isCancel(ev) {
		if err := m.store.Delete(ctx, ev.UserID); err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Обращение отменено. Чтобы начать заново, отправьте /new."}, nil
	}

	switch sess.State {
	case StateIdle:
		return m.handleIdle(ctx, sess, ev)
	case StateAwaitingDescription:
		return m.handleAwaitingDescription(ctx, sess, ev)
	case StateAwaitingConfirmation:
		return m.handleAwaitingConfirmation(ctx, sess, ev)
	case StateAwaitingDepartmentChoice:
		return m.handleAwaitingDepartmentChoice(ctx, sess, ev)
	default:
		// Unknown stored state: reset rather than wedge the user.
		if err := m.store.Delete(ctx, ev.UserID); err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Сессия сброшена. Отправьте /new, чтобы оставить обращение."}, nil
	}
}

func (m *Manager) handleIdle(ctx context.Context, sess *Session, ev InboundEvent) (Reply, error) {
	if isStart(ev) {
		sess.State = StateAwaitingDescription
		if err := m.store.Save(ctx, sess); err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Опишите вашу проблему или предложение одним сообщением."}, nil
	}

	if ev.Kind == EventText && strings.TrimSpace(ev.Text) != "" {
		// Free text with no active session is an implicit start followed by
		// immediate classification.
		return m.classifyDescription(ctx, sess, ev.Text)
	}

	return Reply{Text: "Чтобы оставить обращение, отправьте /new или просто опишите проблему."}, nil
}

func (m *Manager) handleAwaitingDescription(ctx context.Context, sess *Session, ev InboundEvent) (Reply, error) {
	if ev.Kind != EventText || strings.TrimSpace(ev.Text) == "" {
		return Reply{Text: "Пожалуйста, опишите проблему текстовым сообщением."}, nil
	}
	return m.classifyDescription(ctx, sess, ev.Text)
}

func (m *Manager) classifyDescription(ctx context.Context, sess *Session, text string) (Reply, error) {
	res := classifier.Classify(text, m.registry.Routable())

	sess.Message = text
	if res.AutoRoutable() {
		sess.State = StateAwaitingConfirmation
		sess.CandidateDepartmentID = res.DepartmentID
		sess.Confidence = res.Confidence
		sess.MatchedKeywords = res.MatchedKeywords
		if err := m.store.Save(ctx, sess); err != nil {
			return Reply{}, err
		}

		dept, _ := m.registry.Get(res.DepartmentID)
		return Reply{
			Text: fmt.Sprintf(
				"Похоже, ваше обращение относится к управлению «%s» (уверенность %.0f%%). Подтвердить?",
				dept.Name, res.Confidence*100),
			Actions: []Action{
				{Label: "Да, отправить в " + dept.Name, Data: CallbackConfirmDepartment},
				{Label: "Выбрать другое управление", Data: CallbackChooseDepartment},
			},
		}, nil
	}

	sess.State = StateAwaitingDepartmentChoice
	sess.CandidateDepartmentID = ""
	sess.Confidence = 0
	sess.MatchedKeywords = nil
	if err := m.store.Save(ctx, sess); err != nil {
		return Reply{}, err
	}

	return Reply{
		Text:    "Не удалось автоматически определить управление. Выберите его из списка:",
		Actions: m.departmentActions(),
	}, nil
}

func (m *Manager) handleAwaitingConfirmation(ctx context.Context, sess *Session, ev InboundEvent) (Reply, error) {
	if ev.Kind != EventCallback {
		return Reply{
			Text: "Подтвердите выбор управления кнопкой ниже или отмените обращение командой /cancel.",
			Actions: []Action{
				{Label: "Подтвердить", Data: CallbackConfirmDepartment},
				{Label: "Выбрать другое управление", Data: CallbackChooseDepartment},
			},
		}, nil
	}

	switch ev.CallbackData {
	case CallbackConfirmDepartment:
		return m.commit(ctx, sess, sess.CandidateDepartmentID, true)
	case CallbackChooseDepartment:
		sess.State = StateAwaitingDepartmentChoice
		if err := m.store.Save(ctx, sess); err != nil {
			return Reply{}, err
		}
		return Reply{
			Text:    "Выберите управление из списка:",
			Actions: m.departmentActions(),
		}, nil
	default:
		return Reply{Text: "Неизвестное действие. Подтвердите выбор или отправьте /cancel."}, nil
	}
}

func (m *Manager) handleAwaitingDepartmentChoice(ctx context.Context, sess *Session, ev InboundEvent) (Reply, error) {
	if ev.Kind != EventCallback || !strings.HasPrefix(ev.CallbackData, callbackDeptPrefix) {
		return Reply{
			Text:    "Выберите управление из списка:",
			Actions: m.departmentActions(),
		}, nil
	}

	deptID := strings.TrimPrefix(ev.CallbackData, callbackDeptPrefix)
	if _, ok := m.registry.Get(deptID); !ok || deptID == registry.UnclassifiedID {
		return Reply{
			Text:    "Такого управления нет. Выберите из списка:",
			Actions: m.departmentActions(),
		}, nil
	}

	return m.commit(ctx, sess, deptID, false)
}

// commit persists the draft. On a store failure the session is left in its
// current pre-commit state so the user can simply repeat the action.
func (m *Manager) commit(ctx context.Context, sess *Session, departmentID string, autoRouted bool) (Reply, error) {
	id, err := m.committer.Commit(ctx, CommitParams{
		UserID:          sess.UserID,
		ChatID:          sess.ChatID,
		Message:         sess.Message,
		DepartmentID:    departmentID,
		AutoRouted:      autoRouted,
		Confidence:      sess.Confidence,
		MatchedKeywords: sess.MatchedKeywords,
	})
	if err != nil {
		m.log.WithUserID(sess.UserID).Error("complaint commit failed", "error", err)
		return Reply{
			Text:      "Не удалось сохранить обращение. Попробуйте ещё раз.",
			Retryable: true,
		}, nil
	}

	if err := m.store.Delete(ctx, sess.UserID); err != nil {
		// The complaint is committed; a dangling session only costs the
		// user an extra /cancel. Log and move on.
		m.log.WithUserID(sess.UserID).Warn("failed to clear session after commit", "error", err)
	}

	dept, _ := m.registry.Get(departmentID)
	return Reply{
		Text: fmt.Sprintf(
			"Ваше обращение принято и направлено в управление «%s». Номер обращения: %s.",
			dept.Name, id),
		ComplaintID: &id,
	}, nil
}

func (m *Manager) departmentActions() []Action {
	routable := m.registry.Routable()
	actions := make([]Action, 0, len(routable))
	for _, d := range routable {
		actions = append(actions, Action{Label: d.Name, Data: callbackDeptPrefix + d.ID})
	}
	return actions
}

func isCancel(ev InboundEvent) bool {
	if ev.Kind == EventCallback {
		return ev.CallbackData == CallbackCancel
	}
	return strings.TrimSpace(ev.Text) == commandCancel
}

func isStart(ev InboundEvent) bool {
	if ev.Kind != EventText {
		return false
	}
	switch strings.TrimSpace(ev.Text) {
	case commandStart, commandNew:
		return true
	}
	return false
}
