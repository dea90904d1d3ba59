// Package kpi computes per-department performance snapshots over rolling
// windows and persists them for reporting.
package kpi

import (
	"context"
	"time"
)

// PeriodKind selects the rolling window a rollup covers.
type PeriodKind string

const (
	PeriodDaily     PeriodKind = "daily"
	PeriodWeekly    PeriodKind = "weekly"
	PeriodMonthly   PeriodKind = "monthly"
	PeriodQuarterly PeriodKind = "quarterly"
)

// Valid reports whether k is a known period kind.
func (k PeriodKind) Valid() bool {
	switch k {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodQuarterly:
		return true
	}
	return false
}

// Window returns the half-open interval [since, until) the period covers,
// anchored at now.
func (k PeriodKind) Window(now time.Time) (since, until time.Time) {
	until = now.UTC()
	switch k {
	case PeriodDaily:
		since = until.Add(-1 * 24 * time.Hour)
	case PeriodWeekly:
		since = until.Add(-7 * 24 * time.Hour)
	case PeriodQuarterly:
		since = until.Add(-90 * 24 * time.Hour)
	default:
		since = until.Add(-30 * 24 * time.Hour)
	}
	return since, until
}

// DepartmentAggregate is the raw per-department rollup the store computes
// for one window.
type DepartmentAggregate struct {
	DepartmentID         string
	Total                int
	Completed            int
	Overdue              int
	AvgResponseSeconds   float64
	AvgCompletionSeconds float64
}

// Snapshot is one persisted per-department KPI row.
type Snapshot struct {
	DepartmentID         string
	PeriodKind           PeriodKind
	PeriodStart          time.Time
	PeriodEnd            time.Time
	Total                int
	Completed            int
	Overdue              int
	AvgResponseSeconds   float64
	AvgCompletionSeconds float64
	Satisfaction         float64
}

// Report is the overall rollup record with the full per-department
// breakdown serialized as JSON content.
type Report struct {
	PeriodKind  PeriodKind
	PeriodStart time.Time
	PeriodEnd   time.Time
	Content     ReportContent
}

// ReportContent is the JSON body of a report row.
type ReportContent struct {
	GeneratedAt  time.Time  `json:"generatedAt"`
	PeriodKind   PeriodKind `json:"periodKind"`
	Total        int        `json:"total"`
	Completed    int        `json:"completed"`
	Overdue      int        `json:"overdue"`
	Satisfaction float64    `json:"satisfaction"`
	Departments  []Snapshot `json:"departments"`
}

// Store is the persistence interface the aggregator consumes.
type Store interface {
	AggregateByDepartment(ctx context.Context, since, until time.Time) ([]DepartmentAggregate, error)
	UpsertSnapshot(ctx context.Context, s Snapshot) error
	InsertReport(ctx context.Context, r Report) error
}

// Satisfaction is the resolution-rate proxy metric: the share of complaints
// in the window that reached completed, as a percentage. An empty window
// scores zero, not NaN.
func Satisfaction(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}
