package handler

import (
	apphttp "complaints_backend/internal/http"
	"complaints_backend/internal/session"
	"complaints_backend/platform/validator"
)

// Module exposes the conversation webhook as an HTTP-facing module. It lives
// in the handler package because the session root package hosts the state
// machine itself and cannot import its own handler.
type Module struct {
	handler *Handler
}

// NewModule creates the chat HTTP module around an initialized manager.
func NewModule(manager *session.Manager, val *validator.Validator) *Module {
	return &Module{handler: New(manager, val)}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "chat"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/chat"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
