package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hvac_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	approvalGateSQL = `NOT EXISTS (SELECT 1 FROM photos p WHERE p.job_id = j.id AND p.status IN ('pending', 'rejected'))
		AND EXISTS (SELECT 1 FROM photos p WHERE p.job_id = j.id AND p.status = 'approved')`
	hasPhotosSQL = `EXISTS (SELECT 1 FROM photos p WHERE p.job_id = j.id)`
)

// Transition applies a guarded status change and returns the updated job.
// A guard that no longer holds at write time yields InvalidState and leaves
// the row untouched.
func (r *Repository) Transition(ctx context.Context, p TransitionParams) (Job, error) {
	return transition(ctx, r.pool, p)
}

func transition(ctx context.Context, q querier, p TransitionParams) (Job, error) {
	sets := []string{"status = $3", "updated_at = now()"}
	args := []any{p.JobID, p.From, p.To}

	if p.MarkStarted {
		sets = append(sets, "started_at = now()")
	}
	if p.SupervisorNotes != nil {
		args = append(args, *p.SupervisorNotes)
		sets = append(sets, fmt.Sprintf("supervisor_notes = $%d", len(args)))
	}
	if p.Cancel != nil {
		args = append(args, p.Cancel.Reason, p.Cancel.By)
		sets = append(sets,
			fmt.Sprintf("cancel_reason = $%d", len(args)-1),
			fmt.Sprintf("cancelled_by = $%d", len(args)),
			"cancelled_at = now()",
		)
	}

	guards := []string{"j.id = $1", "j.status = ANY($2)"}
	if p.RequirePhotos {
		guards = append(guards, hasPhotosSQL)
	}
	if p.RequireApprovalGate {
		guards = append(guards, approvalGateSQL)
	}

	query := fmt.Sprintf(`
		UPDATE jobs j SET %s
		FROM routes r
		WHERE r.id = j.route_id AND %s
		RETURNING `+jobColumns, strings.Join(sets, ", "), strings.Join(guards, " AND "))

	j, err := scanJob(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, transitionFailure(ctx, q, p)
		}
		return Job{}, fmt.Errorf("failed to transition job: %w", err)
	}
	return j, nil
}

func transitionFailure(ctx context.Context, q querier, p TransitionParams) error {
	current, err := getByID(ctx, q, p.JobID)
	if err != nil {
		return err
	}
	for _, from := range p.From {
		if current.Status != from {
			continue
		}
		message := "job was modified concurrently"
		if p.RequirePhotos || p.RequireApprovalGate {
			message = "photo evidence no longer satisfies the transition"
		}
		return apperr.InvalidState(message).WithDetails(map[string]string{"status": current.Status})
	}
	return apperr.InvalidState(fmt.Sprintf("job is %s, expected %s", current.Status, strings.Join(p.From, " or "))).
		WithDetails(map[string]string{"status": current.Status})
}

// RejectAndResetPhotos sends a job from supervisor review back to the
// technician and resets every rejected photo to pending in one transaction.
// It returns the updated job and how many photos were reset.
func (r *Repository) RejectAndResetPhotos(ctx context.Context, jobID uuid.UUID, from, to string) (Job, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Job{}, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	j, err := transition(ctx, tx, TransitionParams{JobID: jobID, From: []string{from}, To: to})
	if err != nil {
		return Job{}, 0, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE photos
		SET status = 'pending', reject_reason = NULL, rejected_by = NULL, reviewed_at = NULL
		WHERE job_id = $1 AND status = 'rejected'
	`, jobID)
	if err != nil {
		return Job{}, 0, fmt.Errorf("failed to reset rejected photos: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Job{}, 0, fmt.Errorf("failed to commit job rejection: %w", err)
	}
	return j, int(tag.RowsAffected()), nil
}

// IssueReport stores a fresh report token and marks the report as sent,
// guarded on the job being approved.
func (r *Repository) IssueReport(ctx context.Context, jobID uuid.UUID, token string, expiresAt time.Time) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs j SET
			status = 'report_sent',
			report_sent = true,
			report_sent_at = now(),
			report_token = $2,
			report_token_expires_at = $3,
			updated_at = now()
		FROM routes r
		WHERE r.id = j.route_id AND j.id = $1 AND j.status = 'approved'
		RETURNING `+jobColumns, jobID, token, expiresAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, transitionFailure(ctx, r.pool, TransitionParams{JobID: jobID, From: []string{"approved"}})
		}
		return Job{}, fmt.Errorf("failed to issue report: %w", err)
	}
	return j, nil
}

// RevertReport undoes IssueReport after a failed delivery. It only touches
// the row while it still carries token, so a newer send is never undone.
func (r *Repository) RevertReport(ctx context.Context, jobID uuid.UUID, token string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs SET
			status = 'approved',
			report_sent = false,
			report_sent_at = NULL,
			report_token = NULL,
			report_token_expires_at = NULL,
			updated_at = now()
		WHERE id = $1 AND status = 'report_sent' AND report_token = $2
	`, jobID, token)
	if err != nil {
		return fmt.Errorf("failed to revert report: %w", err)
	}
	return nil
}
