package kpi

import (
	"context"
	"fmt"
	"time"

	"complaints_backend/platform/logger"
)

// Aggregator runs KPI rollups.
type Aggregator struct {
	store Store
	log   *logger.Logger
}

// NewAggregator creates a KPI aggregator.
func NewAggregator(store Store, log *logger.Logger) *Aggregator {
	return &Aggregator{store: store, log: log}
}

// RunRollup computes one rollup for the given period anchored at now and
// persists a snapshot per department plus one overall report row. Snapshots
// are upserted on (department, period kind, period end date), so re-running
// a rollup overwrites rather than accumulates.
func (a *Aggregator) RunRollup(ctx context.Context, kind PeriodKind, now time.Time) (Report, error) {
	if !kind.Valid() {
		return Report{}, fmt.Errorf("unknown period kind %q", kind)
	}

	since, until := kind.Window(now)
	aggregates, err := a.store.AggregateByDepartment(ctx, since, until)
	if err != nil {
		return Report{}, err
	}

	content := ReportContent{
		GeneratedAt: until,
		PeriodKind:  kind,
		Departments: make([]Snapshot, 0, len(aggregates)),
	}

	for _, agg := range aggregates {
		snapshot := Snapshot{
			DepartmentID:         agg.DepartmentID,
			PeriodKind:           kind,
			PeriodStart:          since,
			PeriodEnd:            until,
			Total:                agg.Total,
			Completed:            agg.Completed,
			Overdue:              agg.Overdue,
			AvgResponseSeconds:   agg.AvgResponseSeconds,
			AvgCompletionSeconds: agg.AvgCompletionSeconds,
			Satisfaction:         Satisfaction(agg.Completed, agg.Total),
		}
		if err := a.store.UpsertSnapshot(ctx, snapshot); err != nil {
			return Report{}, fmt.Errorf("upsert snapshot for %s: %w", agg.DepartmentID, err)
		}

		content.Departments = append(content.Departments, snapshot)
		content.Total += agg.Total
		content.Completed += agg.Completed
		content.Overdue += agg.Overdue
	}
	content.Satisfaction = Satisfaction(content.Completed, content.Total)

	report := Report{
		PeriodKind:  kind,
		PeriodStart: since,
		PeriodEnd:   until,
		Content:     content,
	}
	if err := a.store.InsertReport(ctx, report); err != nil {
		return Report{}, err
	}

	a.log.Info("kpi rollup complete",
		"period", string(kind),
		"departments", len(content.Departments),
		"total", content.Total,
		"satisfaction", content.Satisfaction)
	return report, nil
}
