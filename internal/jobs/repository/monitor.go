package repository

import (
	"context"
	"fmt"
	"time"

	"hvac_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	opListOverdue     = "jobs.repository.list_overdue"
	opListRunningLate = "jobs.repository.list_running_late"
	opMetrics         = "jobs.repository.supervisor_metrics"
)

// ListOverdue returns open jobs whose route day is before today, created
// since createdAfter, that have not been flagged yet.
func (r *Repository) ListOverdue(ctx context.Context, today, createdAfter time.Time, noticeType string) ([]Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs j JOIN routes r ON r.id = j.route_id
		WHERE j.status IN ('scheduled', 'in_progress')
		  AND r.date < $1::date
		  AND j.created_at >= $2
		  AND NOT EXISTS (
			SELECT 1 FROM notifications n WHERE n.job_id = j.id AND n.type = $3
		  )
		ORDER BY r.date, j.route_order
	`, today.Format("2006-01-02"), createdAfter, noticeType)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list overdue jobs failed: %v", err)).WithOp(opListOverdue)
	}
	return collectJobs(rows, opListOverdue)
}

// ListRunningLate returns in-progress jobs that have exceeded their estimated
// duration and have not been flagged yet.
func (r *Repository) ListRunningLate(ctx context.Context, now time.Time, noticeType string) ([]Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs j JOIN routes r ON r.id = j.route_id
		WHERE j.status = 'in_progress'
		  AND j.started_at IS NOT NULL
		  AND j.estimated_time IS NOT NULL
		  AND j.started_at + make_interval(mins => j.estimated_time) < $1
		  AND NOT EXISTS (
			SELECT 1 FROM notifications n WHERE n.job_id = j.id AND n.type = $2
		  )
		ORDER BY j.started_at
	`, now, noticeType)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list running late jobs failed: %v", err)).WithOp(opListRunningLate)
	}
	return collectJobs(rows, opListRunningLate)
}

// SupervisorMetrics aggregates completed work per active technician of a
// supervisor. Jobs count once they reach supervisor review.
func (r *Repository) SupervisorMetrics(ctx context.Context, supervisorID uuid.UUID, weekStart, monthStart time.Time) ([]TechnicianMetrics, error) {
	rows, err := r.pool.Query(ctx, `
		WITH done AS (
			SELECT j.id, j.technician_id, r.date
			FROM jobs j JOIN routes r ON r.id = j.route_id
			WHERE j.supervisor_id = $1
			  AND j.status IN ('supervisor_review', 'approved', 'report_sent')
			  AND r.date >= $3::date
		)
		SELECT p.id, p.full_name,
			COUNT(d.id) FILTER (WHERE d.date >= $2::date),
			COUNT(d.id),
			COALESCE(SUM(ph.total), 0)::int,
			COALESCE(SUM(ph.approved), 0)::int,
			COALESCE(SUM(ph.rejected), 0)::int
		FROM profiles p
		LEFT JOIN done d ON d.technician_id = p.id
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS total,
				COUNT(*) FILTER (WHERE status = 'approved') AS approved,
				COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
			FROM photos WHERE job_id = d.id
		) ph ON true
		WHERE p.role = 'technician' AND p.is_active = true AND p.supervisor_id = $1
		GROUP BY p.id, p.full_name
		ORDER BY p.full_name
	`, supervisorID, weekStart.Format("2006-01-02"), monthStart.Format("2006-01-02"))
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("supervisor metrics failed: %v", err)).WithOp(opMetrics)
	}
	defer rows.Close()

	items := make([]TechnicianMetrics, 0)
	for rows.Next() {
		var m TechnicianMetrics
		if err := rows.Scan(&m.TechnicianID, &m.TechnicianName, &m.JobsThisWeek, &m.JobsThisMonth,
			&m.PhotoTotal, &m.PhotoApproved, &m.PhotoRejected); err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan metrics failed: %v", err)).WithOp(opMetrics)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate metrics failed: %v", err)).WithOp(opMetrics)
	}
	return items, nil
}
