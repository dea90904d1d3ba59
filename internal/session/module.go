// Package session provides the conversational intake domain module.
package session

import (
	"complaints_backend/internal/registry"
	"complaints_backend/platform/config"
	"complaints_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Module represents the conversation session domain module. The HTTP-facing
// wrapper lives in the handler subpackage; this package only wires the state
// machine and its redis-backed store.
type Module struct {
	manager *Manager
	store   Store
}

// NewModule creates a new session module backed by redis session storage.
func NewModule(cfg config.SessionConfig, reg *registry.Registry, committer Committer, log *logger.Logger) (*Module, error) {
	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	store := NewRedisStore(redis.NewClient(opts), cfg.GetSessionTTL())
	manager := NewManager(store, reg, committer, log)

	return &Module{manager: manager, store: store}, nil
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "session"
}

// Manager returns the conversation state machine.
func (m *Module) Manager() *Manager {
	return m.manager
}
