package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hvac_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate     = "photos.repository.create"
	opGetByID    = "photos.repository.get_by_id"
	opListByJob  = "photos.repository.list_by_job"
	opReview     = "photos.repository.review"
	photoMissing = "photo not found"

	statusInProgress = "in_progress"
)

// Photo is one piece of evidence attached to a job.
type Photo struct {
	ID           uuid.UUID
	JobID        uuid.UUID
	StoragePath  string
	Description  string
	Status       string
	RejectReason *string
	RejectedBy   *uuid.UUID
	ApprovedBy   *uuid.UUID
	UploadedBy   uuid.UUID
	Latitude     *float64
	Longitude    *float64
	ReplacesID   *uuid.UUID
	ClientRef    *string
	CreatedAt    time.Time
	ReviewedAt   *time.Time
}

// NewPhoto is the input of Create.
type NewPhoto struct {
	ID          uuid.UUID
	JobID       uuid.UUID
	StoragePath string
	Description string
	UploadedBy  uuid.UUID
	Latitude    *float64
	Longitude   *float64
	ReplacesID  *uuid.UUID
	ClientRef   *string
}

// Review describes one approve or reject decision.
type Review struct {
	PhotoID    uuid.UUID
	ReviewerID uuid.UUID
	Approve    bool
	Reason     string
}

// Repository persists photo records.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a photos repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const photoColumns = `p.id, p.job_id, p.storage_path, p.description, p.status, p.reject_reason, p.rejected_by,
	p.approved_by, p.uploaded_by, p.latitude, p.longitude, p.replaces_id, p.client_ref, p.created_at, p.reviewed_at`

func scanPhoto(row pgx.Row) (Photo, error) {
	var p Photo
	err := row.Scan(&p.ID, &p.JobID, &p.StoragePath, &p.Description, &p.Status, &p.RejectReason, &p.RejectedBy,
		&p.ApprovedBy, &p.UploadedBy, &p.Latitude, &p.Longitude, &p.ReplacesID, &p.ClientRef, &p.CreatedAt, &p.ReviewedAt)
	return p, err
}

// Create inserts a pending photo. A repeated client reference returns the
// photo stored by the first attempt and created is false. The job row is
// share-locked so a concurrent Complete cannot slip between the status
// check and the insert.
func (r *Repository) Create(ctx context.Context, np NewPhoto) (photo Photo, created bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Photo{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	if err := tx.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1 FOR SHARE`, np.JobID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Photo{}, false, apperr.Validation("photo references an unknown job").WithOp(opCreate)
		}
		return Photo{}, false, fmt.Errorf("failed to lock job: %w", err)
	}

	if np.ClientRef != nil {
		existing, err := scanPhoto(tx.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos p WHERE p.client_ref = $1`, *np.ClientRef))
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return Photo{}, false, fmt.Errorf("failed to get photo by client ref: %w", err)
		}
	}

	if status != statusInProgress {
		return Photo{}, false, apperr.InvalidState(
			fmt.Sprintf("photos can only be added while the job is in_progress (current: %s)", status),
		).WithOp(opCreate).WithDetails(map[string]string{"status": status})
	}

	photo, err = scanPhoto(tx.QueryRow(ctx, `
		INSERT INTO photos AS p (id, job_id, storage_path, description, uploaded_by, latitude, longitude, replaces_id, client_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (client_ref) DO NOTHING
		RETURNING `+photoColumns,
		np.ID, np.JobID, np.StoragePath, np.Description, np.UploadedBy, np.Latitude, np.Longitude, np.ReplacesID, np.ClientRef,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) && np.ClientRef != nil {
			// Another request inserted the same reference after our lookup.
			_ = tx.Rollback(ctx)
			existing, lookupErr := r.GetByClientRef(ctx, *np.ClientRef)
			return existing, false, lookupErr
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Photo{}, false, apperr.Validation("photo references an unknown job, user or photo").WithOp(opCreate)
		}
		return Photo{}, false, fmt.Errorf("failed to create photo: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Photo{}, false, fmt.Errorf("failed to commit photo: %w", err)
	}
	return photo, true, nil
}

// GetByID returns a photo by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Photo, error) {
	p, err := scanPhoto(r.pool.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos p WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Photo{}, apperr.NotFound(photoMissing).WithOp(opGetByID)
		}
		return Photo{}, fmt.Errorf("failed to get photo: %w", err)
	}
	return p, nil
}

// GetByClientRef returns the photo created from a device queue item.
func (r *Repository) GetByClientRef(ctx context.Context, ref string) (Photo, error) {
	p, err := scanPhoto(r.pool.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos p WHERE p.client_ref = $1`, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Photo{}, apperr.NotFound(photoMissing).WithOp(opGetByID)
		}
		return Photo{}, fmt.Errorf("failed to get photo by client ref: %w", err)
	}
	return p, nil
}

// ListByJob returns the photos of a job in upload order. A non-empty status
// narrows the result.
func (r *Repository) ListByJob(ctx context.Context, jobID uuid.UUID, status string) ([]Photo, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+photoColumns+`
		FROM photos p
		WHERE p.job_id = $1 AND ($2 = '' OR p.status = $2)
		ORDER BY p.created_at, p.id
	`, jobID, status)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list photos failed: %v", err)).WithOp(opListByJob)
	}
	defer rows.Close()

	items := make([]Photo, 0)
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan photo failed: %v", err)).WithOp(opListByJob)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate photos failed: %v", err)).WithOp(opListByJob)
	}
	return items, nil
}

// ApplyReview approves or rejects a pending photo whose job is in supervisor
// review. Both conditions are checked in the write.
func (r *Repository) ApplyReview(ctx context.Context, rv Review) (Photo, error) {
	var query string
	args := []any{rv.PhotoID, rv.ReviewerID}
	if rv.Approve {
		query = `
			UPDATE photos p SET status = 'approved', approved_by = $2, reviewed_at = now()
			FROM jobs j
			WHERE p.id = $1 AND j.id = p.job_id AND p.status = 'pending' AND j.status = 'supervisor_review'
			RETURNING ` + photoColumns
	} else {
		args = append(args, rv.Reason)
		query = `
			UPDATE photos p SET status = 'rejected', rejected_by = $2, reject_reason = $3, reviewed_at = now()
			FROM jobs j
			WHERE p.id = $1 AND j.id = p.job_id AND p.status = 'pending' AND j.status = 'supervisor_review'
			RETURNING ` + photoColumns
	}

	p, err := scanPhoto(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Photo{}, r.reviewFailure(ctx, rv.PhotoID)
		}
		return Photo{}, fmt.Errorf("failed to review photo: %w", err)
	}
	return p, nil
}

func (r *Repository) reviewFailure(ctx context.Context, photoID uuid.UUID) error {
	var photoStatus, jobStatus string
	err := r.pool.QueryRow(ctx, `
		SELECT p.status, j.status FROM photos p JOIN jobs j ON j.id = p.job_id WHERE p.id = $1
	`, photoID).Scan(&photoStatus, &jobStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(photoMissing).WithOp(opReview)
		}
		return fmt.Errorf("failed to reload photo: %w", err)
	}
	if jobStatus != "supervisor_review" {
		return apperr.InvalidState(fmt.Sprintf("job is %s, photos can only be reviewed in supervisor_review", jobStatus)).
			WithDetails(map[string]string{"jobStatus": jobStatus})
	}
	return apperr.InvalidState(fmt.Sprintf("photo is already %s", photoStatus)).
		WithDetails(map[string]string{"status": photoStatus})
}
