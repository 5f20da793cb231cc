package service

import (
	"context"
	"time"

	"hvac_dispatch_backend/internal/activity"
	"hvac_dispatch_backend/internal/jobs/repository"
	"hvac_dispatch_backend/internal/jobs/transport"
	photodomain "hvac_dispatch_backend/internal/photos/domain"

	"github.com/google/uuid"
)

// Repository is the job persistence the service drives. Implemented by
// *repository.Repository.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Job, error)
	List(ctx context.Context, filter repository.ListFilter) ([]repository.Job, error)
	CountPhotos(ctx context.Context, jobID uuid.UUID) (photodomain.ReviewCounts, error)
	Transition(ctx context.Context, p repository.TransitionParams) (repository.Job, error)
	RejectAndResetPhotos(ctx context.Context, jobID uuid.UUID, from, to string) (repository.Job, int, error)
	IssueReport(ctx context.Context, jobID uuid.UUID, token string, expiresAt time.Time) (repository.Job, error)
	RevertReport(ctx context.Context, jobID uuid.UUID, token string) error
	Update(ctx context.Context, id uuid.UUID, f repository.UpdateFields) (repository.Job, error)
	Delete(ctx context.Context, id uuid.UUID) error
	InsertOnRoute(ctx context.Context, nj repository.NewJob, allowPublished bool) (repository.Job, error)
	MoveToRoute(ctx context.Context, p repository.MoveParams) (repository.Job, repository.Job, error)
	ListOverdue(ctx context.Context, today, createdAfter time.Time, noticeType string) ([]repository.Job, error)
	ListRunningLate(ctx context.Context, now time.Time, noticeType string) ([]repository.Job, error)
	SupervisorMetrics(ctx context.Context, supervisorID uuid.UUID, weekStart, monthStart time.Time) ([]repository.TechnicianMetrics, error)
}

// ActivityRecorder appends audit entries without failing the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, e activity.NewEntry)
}

// Directory resolves people the workflow talks to.
// Implemented by an adapter over the profiles repository.
type Directory interface {
	DisplayName(ctx context.Context, userID uuid.UUID) (string, error)
	DispatcherIDs(ctx context.Context) ([]uuid.UUID, error)
}

// RouteFinder returns the route of a technician for a day, creating it when
// missing. Implemented by an adapter over the routes service.
type RouteFinder interface {
	FindOrCreateRoute(ctx context.Context, technicianID uuid.UUID, date time.Time, actorID uuid.UUID) (uuid.UUID, error)
}

// PhotoLister returns a job's photos with short-lived URLs.
type PhotoLister interface {
	ListJobPhotos(ctx context.Context, jobID uuid.UUID) ([]transport.PhotoSummary, error)
}

// MaterialLister returns a job's material checklist.
type MaterialLister interface {
	ListJobMaterials(ctx context.Context, jobID uuid.UUID) ([]transport.MaterialSummary, error)
}

// ReportConfig provides settings for client report links.
type ReportConfig interface {
	GetAppBaseURL() string
	GetReportTokenTTL() time.Duration
}
