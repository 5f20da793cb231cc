package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"hvac_dispatch_backend/internal/jobs/repository"
	"hvac_dispatch_backend/internal/jobs/transport"
	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	overdueLookback = 90 * 24 * time.Hour
	metricsWindow   = 30 * 24 * time.Hour

	MonitorOverdue     = "overdue"
	MonitorRunningLate = "running_late"
)

// CheckOverdue flags open jobs whose route day has passed. Each job is
// flagged once; the stored notification marks it as handled.
func (s *Service) CheckOverdue(ctx context.Context) (transport.MonitorResult, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	jobs, err := s.repo.ListOverdue(ctx, today, now.Add(-overdueLookback), string(notices.JobOverdue))
	if err != nil {
		return transport.MonitorResult{}, err
	}

	return s.flag(ctx, MonitorOverdue, jobs, func(j repository.Job) notices.Notice {
		return notices.Notice{
			Type:    notices.JobOverdue,
			Title:   "Trabajo vencido",
			Message: fmt.Sprintf("%s (%s) sigue en %s.", j.ClientName, shortDate(j.RouteDate), j.Status),
			JobID:   jobRef(j.ID),
		}
	})
}

// CheckRunningLate flags in-progress jobs that exceeded their estimate.
func (s *Service) CheckRunningLate(ctx context.Context) (transport.MonitorResult, error) {
	now := s.now()

	jobs, err := s.repo.ListRunningLate(ctx, now, string(notices.JobRunningLate))
	if err != nil {
		return transport.MonitorResult{}, err
	}

	return s.flag(ctx, MonitorRunningLate, jobs, func(j repository.Job) notices.Notice {
		minutes := 0
		if j.StartedAt != nil {
			minutes = int(now.Sub(*j.StartedAt).Minutes())
		}
		return notices.Notice{
			Type:    notices.JobRunningLate,
			Title:   "Trabajo con retraso",
			Message: fmt.Sprintf("%s lleva %d min (estimado %d).", j.ClientName, minutes, derefInt(j.EstimatedTime)),
			JobID:   jobRef(j.ID),
		}
	})
}

func (s *Service) flag(ctx context.Context, check string, jobs []repository.Job, build func(repository.Job) notices.Notice) (transport.MonitorResult, error) {
	result := transport.MonitorResult{Check: check}
	if len(jobs) == 0 {
		return result, nil
	}
	if s.directory == nil {
		return result, apperr.Internal("directory is not configured")
	}

	recipients, err := s.directory.DispatcherIDs(ctx)
	if err != nil {
		return result, err
	}

	for _, job := range jobs {
		n := build(job)
		for _, userID := range recipients {
			n.UserID = userID
			s.notify(ctx, n)
		}
		result.Flagged++
	}
	s.log.Info("monitor check finished", "check", check, "flagged", result.Flagged, "recipients", len(recipients))
	return result, nil
}

// SupervisorMetrics summarises the last 30 days of work of the caller's
// technicians.
func (s *Service) SupervisorMetrics(ctx context.Context, actor access.Actor) ([]transport.TechnicianMetricsResponse, error) {
	if !actor.Has(access.RoleSupervisor) {
		return nil, apperr.Forbidden("only supervisors have a team dashboard")
	}
	return s.metricsFor(ctx, actor.ID)
}

func (s *Service) metricsFor(ctx context.Context, supervisorID uuid.UUID) ([]transport.TechnicianMetricsResponse, error) {
	now := s.now()
	rows, err := s.repo.SupervisorMetrics(ctx, supervisorID, weekStart(now), now.Add(-metricsWindow))
	if err != nil {
		return nil, err
	}

	out := make([]transport.TechnicianMetricsResponse, len(rows))
	for i, m := range rows {
		out[i] = transport.TechnicianMetricsResponse{
			TechnicianID:      m.TechnicianID,
			TechnicianName:    m.TechnicianName,
			JobsThisWeek:      m.JobsThisWeek,
			JobsThisMonth:     m.JobsThisMonth,
			AvgPhotosPerJob:   avgPhotos(m.PhotoTotal, m.JobsThisMonth),
			PhotoApprovalRate: approvalRate(m.PhotoApproved, m.PhotoRejected),
		}
	}
	return out, nil
}

// weekStart returns Monday 00:00 of the week containing t.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -offset)
}

func avgPhotos(photos, jobs int) float64 {
	if jobs == 0 {
		return 0
	}
	return math.Round(float64(photos)/float64(jobs)*10) / 10
}

func approvalRate(approved, rejected int) int {
	reviewed := approved + rejected
	if reviewed == 0 {
		return 0
	}
	return int(math.Round(float64(approved) / float64(reviewed) * 100))
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
