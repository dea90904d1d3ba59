// Package handler exposes KPI snapshots and reports over HTTP.
package handler

import (
	"strconv"

	apphttp "complaints_backend/internal/http"
	"complaints_backend/internal/kpi"
	"complaints_backend/internal/kpi/repository"
	"complaints_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const msgInvalidPeriod = "unknown period kind"

// Handler handles HTTP requests for KPI data.
type Handler struct {
	repo *repository.Repository
}

// New creates a new KPI handler.
func New(repo *repository.Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers the KPI routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/snapshots", h.ListSnapshots)
	rg.GET("/reports/latest", h.LatestReport)
}

// ListSnapshots returns recent snapshots for ?period=<kind>, optionally
// scoped by ?department=<id>.
func (h *Handler) ListSnapshots(c *gin.Context) {
	kind := kpi.PeriodKind(c.DefaultQuery("period", string(kpi.PeriodWeekly)))
	if !kind.Valid() {
		httpkit.BadRequest(c, msgInvalidPeriod)
		return
	}

	var departmentID *string
	if dept := c.Query("department"); dept != "" {
		departmentID = &dept
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	snapshots, err := h.repo.ListSnapshots(c.Request.Context(), kind, departmentID, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, snapshots)
}

// LatestReport returns the most recent report for ?period=<kind>.
func (h *Handler) LatestReport(c *gin.Context) {
	kind := kpi.PeriodKind(c.DefaultQuery("period", string(kpi.PeriodWeekly)))
	if !kind.Valid() {
		httpkit.BadRequest(c, msgInvalidPeriod)
		return
	}

	report, err := h.repo.LatestReport(c.Request.Context(), kind)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report.Content)
}

// Module exposes KPI data as an HTTP-facing module.
type Module struct {
	handler *Handler
}

// NewModule creates the KPI HTTP module.
func NewModule(repo *repository.Repository) *Module {
	return &Module{handler: New(repo)}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "kpi"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/kpi"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
