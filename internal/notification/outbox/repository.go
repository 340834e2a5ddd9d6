package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"repair_ops_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusEnqueued       Status = "enqueued"
	StatusProcessing     Status = "processing"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	errRepoNotConfigured        = "outbox repository not configured"
)

type Record struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	Kind          Kind
	Template      string
	Payload       json.RawMessage
	RunAt         time.Time
	Status        Status
	Attempts      int
}

type InsertParams struct {
	ID            uuid.UUID // optional; generated when nil
	AppointmentID uuid.UUID
	Kind          Kind
	Template      string
	Payload       any
	RunAt         time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const insertQuery = `INSERT INTO appointment_outbox (id, appointment_id, kind, template, payload, run_at, status)
	VALUES ($1, $2, $3, $4, $5, $6, 'pending')`

// Insert writes an intent using q, which may be a transaction shared with the
// state change that produced it.
func Insert(ctx context.Context, q db.Querier, p InsertParams) (uuid.UUID, error) {
	if p.AppointmentID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("appointmentId is required")
	}
	if !p.Kind.IsValid() {
		return uuid.Nil, fmt.Errorf("unknown outbox kind %q", p.Kind)
	}
	if p.Template == "" {
		return uuid.Nil, fmt.Errorf("template is required")
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.RunAt.IsZero() {
		p.RunAt = time.Now().UTC()
	}

	payloadBytes, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload: %w", err)
	}

	if _, err := q.Exec(ctx, insertQuery, p.ID, p.AppointmentID, string(p.Kind), p.Template, payloadBytes, p.RunAt); err != nil {
		return uuid.Nil, fmt.Errorf("insert outbox record: %w", err)
	}
	return p.ID, nil
}

func (r *Repository) Insert(ctx context.Context, p InsertParams) (uuid.UUID, error) {
	if r == nil || r.pool == nil {
		return uuid.Nil, errors.New(errRepoNotConfigured)
	}
	return Insert(ctx, r.pool, p)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Record, error) {
	if r == nil || r.pool == nil {
		return Record{}, errors.New(errRepoNotConfigured)
	}

	var rec Record
	var status, kind string
	err := r.pool.QueryRow(ctx,
		`SELECT id, appointment_id, kind, template, payload, run_at, status, attempts
		 FROM appointment_outbox
		 WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.AppointmentID, &kind, &rec.Template, &rec.Payload, &rec.RunAt, &status, &rec.Attempts)
	if err != nil {
		return Record{}, err
	}
	rec.Kind = Kind(kind)
	rec.Status = Status(status)
	return rec, nil
}

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
		FROM appointment_outbox
		WHERE status = 'pending' AND run_at <= now()
		ORDER BY run_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE appointment_outbox o
	SET status = 'enqueued', updated_at = now()
	FROM cte
	WHERE o.id = cte.id
	RETURNING o.id, o.appointment_id, o.kind, o.template, o.payload, o.run_at, o.status, o.attempts`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var rec Record
		var status, kind string
		if err := rows.Scan(&rec.ID, &rec.AppointmentID, &kind, &rec.Template, &rec.Payload, &rec.RunAt, &status, &rec.Attempts); err != nil {
			return nil, err
		}
		rec.Kind = Kind(kind)
		rec.Status = Status(status)
		results = append(results, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Repository) MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE appointment_outbox
		 SET status = 'pending', last_error = $2, updated_at = now()
		 WHERE id = $1`,
		id, lastError,
	)
	return err
}

func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE appointment_outbox
		 SET status = 'processing', attempts = attempts + 1, updated_at = now()
		 WHERE id = $1`,
		id,
	)
	return err
}

func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE appointment_outbox
		 SET status = 'succeeded', last_error = NULL, updated_at = now()
		 WHERE id = $1`,
		id,
	)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE appointment_outbox
		 SET status = 'failed', last_error = $2, updated_at = now()
		 WHERE id = $1`,
		id, lastError,
	)
	return err
}

func (r *Repository) ScheduleRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE appointment_outbox
		 SET status = 'pending', run_at = $2, last_error = $3, updated_at = now()
		 WHERE id = $1`,
		id, runAt, lastError,
	)
	return err
}

// RequeueStale returns records stuck in enqueued or processing since before
// cutoff to pending, e.g. after a worker crash.
func (r *Repository) RequeueStale(ctx context.Context, cutoff time.Time) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New(errRepoNotConfigured)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE appointment_outbox
		 SET status = 'pending', last_error = 'requeued after stalling', updated_at = now()
		 WHERE status IN ('enqueued', 'processing') AND updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteSucceededBefore removes delivered records last touched before cutoff.
// Failed records are kept for operators.
func (r *Repository) DeleteSucceededBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New(errRepoNotConfigured)
	}
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM appointment_outbox WHERE status = 'succeeded' AND updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
