// Package activity keeps the append-only audit trail of every job.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hvac_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opAppend = "activity.repository.append"
	opList   = "activity.repository.list"
)

// Type tags an activity entry.
type Type string

const (
	TypeStatusChange Type = "status_change"
	TypePhotoUpload  Type = "photo_upload"
	TypePhotoReview  Type = "photo_review"
	TypeNote         Type = "note"
	TypeReport       Type = "report"
	TypeAssignment   Type = "assignment"
	TypeCancellation Type = "cancellation"
)

// Entry is one line of a job's audit trail.
type Entry struct {
	ID          uuid.UUID      `json:"id"`
	JobID       uuid.UUID      `json:"jobId"`
	Action      string         `json:"action"`
	Type        Type           `json:"type"`
	Details     map[string]any `json:"details,omitempty"`
	PerformedBy uuid.UUID      `json:"performedBy"`
	ActorName   string         `json:"actorName,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// NewEntry is the input of Append.
type NewEntry struct {
	JobID       uuid.UUID
	Action      string
	Type        Type
	Details     map[string]any
	PerformedBy uuid.UUID
}

// Execer is satisfied by *pgxpool.Pool and pgx.Tx so entries can be written
// inside the caller's transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists activity entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an activity repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append writes an entry through the pool.
func (r *Repository) Append(ctx context.Context, e NewEntry) error {
	return AppendWith(ctx, r.pool, e)
}

// AppendWith writes an entry through db, typically an open transaction.
func AppendWith(ctx context.Context, db Execer, e NewEntry) error {
	var details []byte
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("failed to encode activity details: %w", err)
		}
		details = raw
	}

	_, err := db.Exec(ctx, `
		INSERT INTO activity_log (job_id, action, type, details, performed_by)
		VALUES ($1, $2, $3, $4, $5)
	`, e.JobID, e.Action, string(e.Type), details, e.PerformedBy)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("append activity failed: %v", err)).WithOp(opAppend)
	}
	return nil
}

// ListByJob returns the trail of a job, oldest first.
func (r *Repository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.job_id, a.action, a.type, a.details, a.performed_by, COALESCE(p.full_name, ''), a.created_at
		FROM activity_log a
		LEFT JOIN profiles p ON p.id = a.performed_by
		WHERE a.job_id = $1
		ORDER BY a.created_at ASC
	`, jobID)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list activity failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan activity failed: %v", err)).WithOp(opList)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate activity failed: %v", err)).WithOp(opList)
	}
	return items, nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e       Entry
		typ     string
		details []byte
	)
	if err := row.Scan(&e.ID, &e.JobID, &e.Action, &typ, &details, &e.PerformedBy, &e.ActorName, &e.CreatedAt); err != nil {
		return Entry{}, err
	}
	e.Type = Type(typ)
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return Entry{}, err
		}
	}
	return e, nil
}
