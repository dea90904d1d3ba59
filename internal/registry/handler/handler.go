// Package handler exposes the department registry over HTTP.
package handler

import (
	apphttp "complaints_backend/internal/http"
	"complaints_backend/internal/registry"
	"complaints_backend/platform/httpkit"
	"complaints_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// DepartmentResponse is the API representation of a department.
type DepartmentResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ContactEmail string   `json:"contactEmail,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// Handler handles HTTP requests for the department registry.
type Handler struct {
	reg *registry.Registry
	log *logger.Logger
}

// New creates a new registry handler.
func New(reg *registry.Registry, log *logger.Logger) *Handler {
	return &Handler{reg: reg, log: log}
}

// RegisterRoutes registers the department routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("/reload", h.Reload)
}

// List returns all departments, including the unclassified fallback.
func (h *Handler) List(c *gin.Context) {
	departments := h.reg.All()
	out := make([]DepartmentResponse, 0, len(departments))
	for _, d := range departments {
		out = append(out, DepartmentResponse{
			ID:           d.ID,
			Name:         d.Name,
			ContactEmail: d.ContactEmail,
			Keywords:     d.Keywords,
		})
	}
	httpkit.OK(c, out)
}

// Reload re-reads the departments file and atomically swaps the registry.
// A broken file leaves the previous snapshot serving.
func (h *Handler) Reload(c *gin.Context) {
	if err := h.reg.Reload(); err != nil {
		h.log.Error("department registry reload failed", "error", err)
		httpkit.Error(c, err)
		return
	}

	h.log.Info("department registry reloaded", "departments", len(h.reg.All()))
	httpkit.OK(c, gin.H{"status": "reloaded", "departments": len(h.reg.All())})
}

// Module exposes the registry as an HTTP-facing module.
type Module struct {
	handler *Handler
}

// NewModule creates the departments HTTP module.
func NewModule(reg *registry.Registry, log *logger.Logger) *Module {
	return &Module{handler: New(reg, log)}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "registry"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/departments"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
