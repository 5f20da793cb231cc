// Package repository is the PostgreSQL persistence of jobs. Every status
// change is a conditional update guarded on the expected current status.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	photodomain "hvac_dispatch_backend/internal/photos/domain"
	"hvac_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opGetByID     = "jobs.repository.get_by_id"
	opList        = "jobs.repository.list"
	opCountPhotos = "jobs.repository.count_photos"
	opUpdate      = "jobs.repository.update"
	opByToken     = "jobs.repository.find_by_report_token"

	jobNotFoundMsg = "job not found"
	defaultLimit   = 200
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists jobs.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a jobs repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const jobColumns = `j.id, j.route_id, j.route_order, r.date, j.client_name, j.client_email, j.client_phone,
	j.address, j.latitude, j.longitude, j.service_type, j.equipment, j.technician_id, j.supervisor_id,
	j.estimated_time, j.instructions, j.status, j.supervisor_notes, j.report_sent, j.report_sent_at,
	j.report_token, j.report_token_expires_at, j.cancel_reason, j.cancelled_by, j.cancelled_at,
	j.started_at, j.created_at, j.updated_at`

func scanJob(row pgx.Row) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.RouteID, &j.RouteOrder, &j.RouteDate, &j.ClientName, &j.ClientEmail, &j.ClientPhone,
		&j.Address, &j.Latitude, &j.Longitude, &j.ServiceType, &j.Equipment, &j.TechnicianID, &j.SupervisorID,
		&j.EstimatedTime, &j.Instructions, &j.Status, &j.SupervisorNotes, &j.ReportSent, &j.ReportSentAt,
		&j.ReportToken, &j.ReportTokenExpiresAt, &j.CancelReason, &j.CancelledBy, &j.CancelledAt,
		&j.StartedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	return j, err
}

func collectJobs(rows pgx.Rows, op string) ([]Job, error) {
	defer rows.Close()
	items := make([]Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan job failed: %v", err)).WithOp(op)
		}
		items = append(items, j)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate jobs failed: %v", err)).WithOp(op)
	}
	return items, nil
}

// GetByID returns a job by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Job, error) {
	return getByID(ctx, r.pool, id)
}

func getByID(ctx context.Context, q querier, id uuid.UUID) (Job, error) {
	j, err := scanJob(q.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM jobs j JOIN routes r ON r.id = j.route_id
		WHERE j.id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.NotFound(jobNotFoundMsg).WithOp(opGetByID)
		}
		return Job{}, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// FindByReportToken resolves a public report token.
func (r *Repository) FindByReportToken(ctx context.Context, token string) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM jobs j JOIN routes r ON r.id = j.route_id
		WHERE j.report_token = $1
	`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.NotFound("report not found").WithOp(opByToken)
		}
		return Job{}, fmt.Errorf("failed to find job by report token: %w", err)
	}
	return j, nil
}

// List returns jobs matching filter ordered by route date and stop order.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Job, error) {
	conditions := make([]string, 0, 5)
	args := make([]any, 0, 7)
	add := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.RouteID != nil {
		add("j.route_id = $%d", *filter.RouteID)
	}
	if filter.TechnicianID != nil {
		add("j.technician_id = $%d", *filter.TechnicianID)
	}
	if filter.SupervisorID != nil {
		add("j.supervisor_id = $%d", *filter.SupervisorID)
	}
	if len(filter.Statuses) > 0 {
		add("j.status = ANY($%d)", filter.Statuses)
	}
	if filter.Date != nil {
		add("r.date = $%d::date", filter.Date.Format("2006-01-02"))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > defaultLimit {
		limit = defaultLimit
	}
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT `+jobColumns+`
		FROM jobs j JOIN routes r ON r.id = j.route_id
		%s
		ORDER BY r.date DESC, j.route_id, j.route_order
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list jobs failed: %v", err)).WithOp(opList)
	}
	return collectJobs(rows, opList)
}

// CountPhotos aggregates the photos of a job by review status.
func (r *Repository) CountPhotos(ctx context.Context, jobID uuid.UUID) (photodomain.ReviewCounts, error) {
	return countPhotos(ctx, r.pool, jobID)
}

func countPhotos(ctx context.Context, q querier, jobID uuid.UUID) (photodomain.ReviewCounts, error) {
	var c photodomain.ReviewCounts
	err := q.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected')
		FROM photos
		WHERE job_id = $1
	`, jobID).Scan(&c.Pending, &c.Approved, &c.Rejected)
	if err != nil {
		return photodomain.ReviewCounts{}, apperr.Internal(fmt.Sprintf("count photos failed: %v", err)).WithOp(opCountPhotos)
	}
	return c, nil
}

// Update writes whitelisted dispatch fields while the job is still open.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, f UpdateFields) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs j SET
			client_name = COALESCE($2, j.client_name),
			client_email = COALESCE($3, j.client_email),
			client_phone = COALESCE($4, j.client_phone),
			address = COALESCE($5, j.address),
			latitude = COALESCE($6, j.latitude),
			longitude = COALESCE($7, j.longitude),
			service_type = COALESCE($8, j.service_type),
			equipment = COALESCE($9, j.equipment),
			supervisor_id = COALESCE($10, j.supervisor_id),
			estimated_time = COALESCE($11, j.estimated_time),
			instructions = COALESCE($12, j.instructions),
			updated_at = now()
		FROM routes r
		WHERE r.id = j.route_id AND j.id = $1 AND j.status NOT IN ('report_sent', 'cancelled')
		RETURNING `+jobColumns,
		id, f.ClientName, f.ClientEmail, f.ClientPhone, f.Address, f.Latitude, f.Longitude,
		f.ServiceType, f.Equipment, f.SupervisorID, f.EstimatedTime, f.Instructions,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, guardFailure(ctx, r.pool, id, "job can no longer be edited")
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Job{}, apperr.Validation("unknown supervisor").WithOp(opUpdate)
		}
		return Job{}, fmt.Errorf("failed to update job: %w", err)
	}
	return j, nil
}

// Delete hard-deletes a scheduled job that has no photos.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM jobs
		WHERE id = $1 AND status = 'scheduled'
		  AND NOT EXISTS (SELECT 1 FROM photos p WHERE p.job_id = jobs.id)
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return guardFailure(ctx, r.pool, id, "only scheduled jobs without photos can be deleted")
	}
	return nil
}

// guardFailure turns a conditional write that matched nothing into NotFound
// when the job is gone, otherwise InvalidState.
func guardFailure(ctx context.Context, q querier, id uuid.UUID, message string) error {
	current, err := getByID(ctx, q, id)
	if err != nil {
		return err
	}
	return apperr.InvalidState(fmt.Sprintf("%s (current status: %s)", message, current.Status)).
		WithDetails(map[string]string{"status": current.Status})
}
