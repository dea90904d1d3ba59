// Package complaints provides the complaint lifecycle domain module.
package complaints

import (
	"complaints_backend/internal/complaints/handler"
	"complaints_backend/internal/complaints/repository"
	"complaints_backend/internal/complaints/service"
	"complaints_backend/internal/events"
	apphttp "complaints_backend/internal/http"
	"complaints_backend/internal/registry"
	"complaints_backend/platform/logger"
	"complaints_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the complaints domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new complaints module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, reg *registry.Registry, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, reg, log)
	svc.SetEventBus(eventBus)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "complaints"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/complaints"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
