package repository

import (
	"context"
	"errors"
	"fmt"

	"complaints_backend/internal/complaints/domain"
	"complaints_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const complaintNotFoundMsg = "complaint not found"

// Repository provides database operations for complaints and their history.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new complaints repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const complaintColumns = `id, user_id, chat_id, department_id, message, status, priority,
	response, deadline, created_at, updated_at, completed_at`

func scanComplaint(row pgx.Row) (domain.Complaint, error) {
	var c domain.Complaint
	var status, priority string
	err := row.Scan(&c.ID, &c.UserID, &c.ChatID, &c.DepartmentID, &c.Message,
		&status, &priority, &c.Response, &c.Deadline, &c.CreatedAt, &c.UpdatedAt, &c.CompletedAt)
	if err != nil {
		return domain.Complaint{}, err
	}
	c.Status = domain.Status(status)
	c.Priority = domain.Priority(priority)
	return c, nil
}

// Create inserts a new complaint row.
func (r *Repository) Create(ctx context.Context, c *domain.Complaint) error {
	query := `
		INSERT INTO complaints (
			id, user_id, chat_id, department_id, message, status, priority,
			response, deadline, created_at, updated_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.UserID, c.ChatID, c.DepartmentID, c.Message,
		string(c.Status), string(c.Priority),
		c.Response, c.Deadline, c.CreatedAt, c.UpdatedAt, c.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert complaint: %w", err)
	}
	return nil
}

// CreateWithHistory inserts a complaint and its first history entry in a
// single transaction, so a committed conversation session produces either
// both rows or neither.
func (r *Repository) CreateWithHistory(ctx context.Context, c *domain.Complaint, h *domain.HistoryEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	complaintQuery := `
		INSERT INTO complaints (
			id, user_id, chat_id, department_id, message, status, priority,
			response, deadline, created_at, updated_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := tx.Exec(ctx, complaintQuery,
		c.ID, c.UserID, c.ChatID, c.DepartmentID, c.Message,
		string(c.Status), string(c.Priority),
		c.Response, c.Deadline, c.CreatedAt, c.UpdatedAt, c.CompletedAt,
	); err != nil {
		return fmt.Errorf("failed to insert complaint: %w", err)
	}

	historyQuery := `
		INSERT INTO complaint_history (id, complaint_id, status, department_id, comment, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := tx.Exec(ctx, historyQuery,
		h.ID, h.ComplaintID, string(h.Status), h.DepartmentID, h.Comment, h.Actor, h.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID fetches a complaint by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`

	c, err := scanComplaint(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Complaint{}, apperr.NotFound(complaintNotFoundMsg)
		}
		return domain.Complaint{}, fmt.Errorf("failed to get complaint: %w", err)
	}
	return c, nil
}

// UpdateStatus applies a status transition as a compare-and-set: the write
// only lands when the stored status still equals expected. Concurrent sweeps
// racing on the same complaint observe apperr.Conflict and skip the record.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus, expected domain.Status) error {
	query := `
		UPDATE complaints
		SET status = $2,
		    updated_at = now(),
		    completed_at = CASE WHEN $2 = 'completed' THEN now() ELSE completed_at END
		WHERE id = $1 AND status = $3`

	tag, err := r.pool.Exec(ctx, query, id, string(newStatus), string(expected))
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a lost race from a missing record.
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM complaints WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check complaint existence: %w", err)
		}
		if !exists {
			return apperr.NotFound(complaintNotFoundMsg)
		}
		return apperr.Conflict("complaint status changed concurrently")
	}
	return nil
}

// SetResponse records the department's response text on a complaint.
func (r *Repository) SetResponse(ctx context.Context, id uuid.UUID, response string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE complaints SET response = $2, updated_at = now() WHERE id = $1`,
		id, response,
	)
	if err != nil {
		return fmt.Errorf("failed to set response: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(complaintNotFoundMsg)
	}
	return nil
}

// ListActive returns complaints whose status is in the given set,
// oldest first so the sweep processes the longest-waiting items first.
func (r *Repository) ListActive(ctx context.Context, statuses []domain.Status) ([]domain.Complaint, error) {
	set := make([]string, 0, len(statuses))
	for _, s := range statuses {
		set = append(set, string(s))
	}

	query := `SELECT ` + complaintColumns + `
		FROM complaints
		WHERE status = ANY($1)
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, set)
	if err != nil {
		return nil, fmt.Errorf("failed to list active complaints: %w", err)
	}
	defer rows.Close()

	return collectComplaints(rows)
}

// ListByUser returns a citizen's complaints, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + `
		FROM complaints
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	defer rows.Close()

	return collectComplaints(rows)
}

func collectComplaints(rows pgx.Rows) ([]domain.Complaint, error) {
	var results []domain.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return results, nil
}

// AppendHistory writes an audit entry. History rows are append-only.
func (r *Repository) AppendHistory(ctx context.Context, e *domain.HistoryEntry) error {
	query := `
		INSERT INTO complaint_history (id, complaint_id, status, department_id, comment, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.ComplaintID, string(e.Status), e.DepartmentID, e.Comment, e.Actor, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// History returns a complaint's audit trail in creation order.
func (r *Repository) History(ctx context.Context, complaintID uuid.UUID) ([]domain.HistoryEntry, error) {
	query := `
		SELECT id, complaint_id, status, department_id, comment, actor, created_at
		FROM complaint_history
		WHERE complaint_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var results []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		var status string
		if err := rows.Scan(&e.ID, &e.ComplaintID, &status, &e.DepartmentID, &e.Comment, &e.Actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Status = domain.Status(status)
		results = append(results, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return results, nil
}

// StatusCounts returns complaint counts per status, optionally scoped to a
// department.
func (r *Repository) StatusCounts(ctx context.Context, departmentID *string) (map[domain.Status]int, error) {
	query := `
		SELECT status, count(*)
		FROM complaints
		WHERE $1::text IS NULL OR department_id = $1
		GROUP BY status`

	rows, err := r.pool.Query(ctx, query, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count complaints: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.Status(status)] = n
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return counts, nil
}
