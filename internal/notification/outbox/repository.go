// Package outbox persists notifications before delivery. Writing the intent
// to Postgres first means a crashed dispatcher never loses a notification,
// and the day-bucket uniqueness gives atomic reminder dedup across instances.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Status is the delivery state of an outbox record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusEnqueued  Status = "enqueued"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"

	errRepoNotConfigured = "outbox repository not configured"

	// maxAttempts is how many deliveries are tried before a record is
	// parked as failed.
	maxAttempts = 5
)

// Record is one notification waiting for (or past) delivery.
type Record struct {
	ID          uuid.UUID
	ComplaintID uuid.UUID
	Kind        string
	Recipient   string
	Payload     json.RawMessage
	RunAt       time.Time
	Status      Status
	Attempts    int
}

// InsertParams describes a notification to enqueue.
type InsertParams struct {
	ComplaintID uuid.UUID
	Kind        string
	Recipient   string
	Payload     any
	RunAt       time.Time
	// Dedup collapses repeated inserts for the same complaint, kind, and
	// calendar day into one record. Used for deadline reminders.
	Dedup bool
}

// Repository is the pgx-backed outbox store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new outbox repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert enqueues a notification. With Dedup set, a record that already
// exists for the same (complaint, kind, day) is left untouched and inserted
// reports false.
func (r *Repository) Insert(ctx context.Context, p InsertParams) (id uuid.UUID, inserted bool, err error) {
	if r == nil || r.pool == nil {
		return uuid.Nil, false, errors.New(errRepoNotConfigured)
	}
	if p.ComplaintID == uuid.Nil {
		return uuid.Nil, false, fmt.Errorf("complaintId is required")
	}
	if p.Kind == "" {
		return uuid.Nil, false, fmt.Errorf("kind is required")
	}
	if p.Recipient == "" {
		return uuid.Nil, false, fmt.Errorf("recipient is required")
	}
	if p.RunAt.IsZero() {
		p.RunAt = time.Now().UTC()
	}

	payloadBytes, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("marshal payload: %w", err)
	}

	query := `INSERT INTO notification_outbox (complaint_id, kind, recipient, payload, run_at, day_bucket, status)
	 VALUES ($1, $2, $3, $4, $5, $6, 'pending')
	 RETURNING id`
	dayBucket := p.RunAt.UTC().Truncate(24 * time.Hour)
	if p.Dedup {
		// The conflict target names the partial reminder index; only
		// deadline_reminder rows carry the one-per-day uniqueness.
		query = `INSERT INTO notification_outbox (complaint_id, kind, recipient, payload, run_at, day_bucket, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		 ON CONFLICT (complaint_id, kind, day_bucket) WHERE kind = 'deadline_reminder' DO NOTHING
		 RETURNING id`
	}

	err = r.pool.QueryRow(ctx, query,
		p.ComplaintID, p.Kind, p.Recipient, payloadBytes, p.RunAt, dayBucket,
	).Scan(&id)
	if err != nil {
		if p.Dedup && errors.Is(err, pgx.ErrNoRows) {
			// Conflict path: another insert already claimed this bucket.
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return id, true, nil
}

// ClaimPending atomically moves due pending records to enqueued and returns
// them. FOR UPDATE SKIP LOCKED keeps concurrent dispatchers from claiming
// the same rows.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]Record, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New(errRepoNotConfigured)
	}
	if limit < 1 {
		limit = 50
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH cte AS (
		SELECT id
		FROM notification_outbox
		WHERE status = 'pending' AND run_at <= now()
		ORDER BY run_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE notification_outbox o
	SET status = 'enqueued', updated_at = now()
	FROM cte
	WHERE o.id = cte.id
	RETURNING o.id, o.complaint_id, o.kind, o.recipient, o.payload, o.run_at, o.status, o.attempts`, limit)
	if err != nil {
		return nil, err
	}

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

// MarkSucceeded finalizes a delivered record.
func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'succeeded', attempts = attempts + 1, updated_at = now()
		 WHERE id = $1`, id)
	return err
}

// MarkFailed counts a failed attempt. The record returns to pending for a
// later retry until the attempt cap, then parks as failed.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET attempts = attempts + 1,
		     last_error = $2,
		     status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END,
		     updated_at = now()
		 WHERE id = $1`, id, cause, maxAttempts)
	return err
}

// RequeueStale returns enqueued records older than the given age to pending.
// Covers dispatchers that died between claim and delivery.
func (r *Repository) RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New(errRepoNotConfigured)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'pending', updated_at = now()
		 WHERE status = 'enqueued' AND updated_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var status string
		if err := rows.Scan(&rec.ID, &rec.ComplaintID, &rec.Kind, &rec.Recipient,
			&rec.Payload, &rec.RunAt, &status, &rec.Attempts); err != nil {
			return nil, err
		}
		rec.Status = Status(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}
