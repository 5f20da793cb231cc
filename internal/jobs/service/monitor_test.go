package service

import (
	"context"
	"testing"
	"time"

	"hvac_dispatch_backend/internal/jobs/domain"
	"hvac_dispatch_backend/internal/jobs/repository"
	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestCheckOverdueFlagsEachJobOnce(t *testing.T) {
	f := newFixture(t)
	yesterday := f.repo.addRoute(f.tech.ID, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), true)
	late := f.repo.addJob(repository.Job{RouteID: yesterday, RouteOrder: 1, ClientName: "Tienda Sol", SupervisorID: f.sup.ID, CreatedAt: fixedNow.Add(-72 * time.Hour)})
	f.repo.addJob(repository.Job{RouteID: yesterday, RouteOrder: 2, Status: "approved", SupervisorID: f.sup.ID, CreatedAt: fixedNow.Add(-72 * time.Hour)})
	f.repo.addJob(repository.Job{RouteID: yesterday, RouteOrder: 3, SupervisorID: f.sup.ID, CreatedAt: fixedNow.Add(-120 * 24 * time.Hour)})

	result, err := f.svc.CheckOverdue(context.Background())
	if err != nil {
		t.Fatalf("CheckOverdue: %v", err)
	}
	if result.Check != MonitorOverdue || result.Flagged != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	overdue := f.notifier.ofType(notices.JobOverdue)
	if len(overdue) != 1 || overdue[0].UserID != f.ops.ID || *overdue[0].JobID != late {
		t.Fatalf("unexpected overdue notices %+v", overdue)
	}

	again, err := f.svc.CheckOverdue(context.Background())
	if err != nil {
		t.Fatalf("second CheckOverdue: %v", err)
	}
	if again.Flagged != 0 {
		t.Fatalf("expected job to be flagged once, got %d", again.Flagged)
	}
}

func TestCheckRunningLate(t *testing.T) {
	f := newFixture(t)
	started := fixedNow.Add(-3 * time.Hour)
	estimate := 90
	f.repo.mu.Lock()
	j := f.repo.jobs[f.jobID]
	j.Status = string(domain.StatusInProgress)
	j.StartedAt = &started
	j.EstimatedTime = &estimate
	f.repo.mu.Unlock()

	result, err := f.svc.CheckRunningLate(context.Background())
	if err != nil {
		t.Fatalf("CheckRunningLate: %v", err)
	}
	if result.Flagged != 1 {
		t.Fatalf("expected one flagged job, got %d", result.Flagged)
	}
	late := f.notifier.ofType(notices.JobRunningLate)
	if len(late) != 1 || late[0].Message != "Ana López lleva 180 min (estimado 90)." {
		t.Fatalf("unexpected notices %+v", late)
	}
}

func TestSupervisorMetrics(t *testing.T) {
	f := newFixture(t)
	techID := uuid.New()
	f.repo.metrics = []repository.TechnicianMetrics{{
		TechnicianID:   techID,
		TechnicianName: "Luis Pérez",
		JobsThisWeek:   2,
		JobsThisMonth:  3,
		PhotoTotal:     10,
		PhotoApproved:  7,
		PhotoRejected:  2,
	}}

	rows, err := f.svc.SupervisorMetrics(context.Background(), f.sup)
	if err != nil {
		t.Fatalf("SupervisorMetrics: %v", err)
	}
	if len(rows) != 1 || rows[0].AvgPhotosPerJob != 3.3 || rows[0].PhotoApprovalRate != 78 {
		t.Fatalf("unexpected metrics %+v", rows)
	}

	if _, err := f.svc.SupervisorMetrics(context.Background(), access.Actor{ID: uuid.New(), Roles: []string{access.RoleTechnician}}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for technician, got %v", err)
	}
}

func TestMetricHelpers(t *testing.T) {
	if got := weekStart(fixedNow); !got.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected Monday 9 March, got %v", got)
	}
	sunday := time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC)
	if got := weekStart(sunday); !got.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected Sunday to belong to the week of 9 March, got %v", got)
	}
	if approvalRate(0, 0) != 0 || approvalRate(1, 2) != 33 || approvalRate(2, 1) != 67 {
		t.Fatalf("unexpected approval rates")
	}
	if avgPhotos(5, 0) != 0 || avgPhotos(5, 2) != 2.5 {
		t.Fatalf("unexpected photo averages")
	}
}
