// Package repository persists KPI snapshots and reports in Postgres.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"complaints_backend/internal/kpi"
	"complaints_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the pgx-backed KPI store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new KPI repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AggregateByDepartment rolls up complaints created in [since, until) per
// department. Unrouted complaints aggregate under the unclassified bucket.
func (r *Repository) AggregateByDepartment(ctx context.Context, since, until time.Time) ([]kpi.DepartmentAggregate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			COALESCE(department_id, 'unclassified') AS department_id,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'overdue') AS overdue,
			COALESCE(AVG(EXTRACT(EPOCH FROM updated_at - created_at)) FILTER (WHERE response IS NOT NULL), 0) AS avg_response_seconds,
			COALESCE(AVG(EXTRACT(EPOCH FROM completed_at - created_at)) FILTER (WHERE completed_at IS NOT NULL), 0) AS avg_completion_seconds
		FROM complaints
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY COALESCE(department_id, 'unclassified')
		ORDER BY department_id`,
		since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggregates []kpi.DepartmentAggregate
	for rows.Next() {
		var agg kpi.DepartmentAggregate
		if err := rows.Scan(&agg.DepartmentID, &agg.Total, &agg.Completed, &agg.Overdue,
			&agg.AvgResponseSeconds, &agg.AvgCompletionSeconds); err != nil {
			return nil, err
		}
		aggregates = append(aggregates, agg)
	}
	return aggregates, rows.Err()
}

// UpsertSnapshot writes one per-department snapshot. The conflict target is
// the (department, period kind, period end date) key, so re-running a rollup
// for the same day overwrites the previous values.
func (r *Repository) UpsertSnapshot(ctx context.Context, s kpi.Snapshot) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO kpi_snapshots
			(department_id, period_kind, period_start, period_end, period_date,
			 total, completed, overdue, avg_response_seconds, avg_completion_seconds, satisfaction)
		VALUES ($1, $2, $3, $4, $4::date, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (department_id, period_kind, period_date) DO UPDATE SET
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			total = EXCLUDED.total,
			completed = EXCLUDED.completed,
			overdue = EXCLUDED.overdue,
			avg_response_seconds = EXCLUDED.avg_response_seconds,
			avg_completion_seconds = EXCLUDED.avg_completion_seconds,
			satisfaction = EXCLUDED.satisfaction,
			updated_at = now()`,
		s.DepartmentID, string(s.PeriodKind), s.PeriodStart, s.PeriodEnd,
		s.Total, s.Completed, s.Overdue, s.AvgResponseSeconds, s.AvgCompletionSeconds, s.Satisfaction)
	return err
}

// InsertReport appends one overall report row.
func (r *Repository) InsertReport(ctx context.Context, rep kpi.Report) error {
	content, err := json.Marshal(rep.Content)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO kpi_reports (period_kind, period_start, period_end, content)
		VALUES ($1, $2, $3, $4)`,
		string(rep.PeriodKind), rep.PeriodStart, rep.PeriodEnd, content)
	return err
}

// ListSnapshots returns recent snapshots for a period kind, optionally
// filtered by department, newest first.
func (r *Repository) ListSnapshots(ctx context.Context, kind kpi.PeriodKind, departmentID *string, limit int) ([]kpi.Snapshot, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT department_id, period_kind, period_start, period_end,
		       total, completed, overdue, avg_response_seconds, avg_completion_seconds, satisfaction
		FROM kpi_snapshots
		WHERE period_kind = $1 AND ($2::text IS NULL OR department_id = $2)
		ORDER BY period_end DESC, department_id ASC
		LIMIT $3`,
		string(kind), departmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []kpi.Snapshot
	for rows.Next() {
		var s kpi.Snapshot
		var kindStr string
		if err := rows.Scan(&s.DepartmentID, &kindStr, &s.PeriodStart, &s.PeriodEnd,
			&s.Total, &s.Completed, &s.Overdue,
			&s.AvgResponseSeconds, &s.AvgCompletionSeconds, &s.Satisfaction); err != nil {
			return nil, err
		}
		s.PeriodKind = kpi.PeriodKind(kindStr)
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// LatestReport returns the most recent report for a period kind.
func (r *Repository) LatestReport(ctx context.Context, kind kpi.PeriodKind) (kpi.Report, error) {
	var rep kpi.Report
	var kindStr string
	var content []byte
	err := r.pool.QueryRow(ctx, `
		SELECT period_kind, period_start, period_end, content
		FROM kpi_reports
		WHERE period_kind = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		string(kind)).Scan(&kindStr, &rep.PeriodStart, &rep.PeriodEnd, &content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return kpi.Report{}, apperr.NotFound("no report for this period yet")
		}
		return kpi.Report{}, err
	}
	rep.PeriodKind = kpi.PeriodKind(kindStr)
	if err := json.Unmarshal(content, &rep.Content); err != nil {
		return kpi.Report{}, err
	}
	return rep, nil
}

// Compile-time check that Repository implements the aggregator's store.
var _ kpi.Store = (*Repository)(nil)
