package service

import (
	"context"

	"hvac_dispatch_backend/internal/activity"
	"hvac_dispatch_backend/internal/photos/repository"

	"github.com/google/uuid"
)

// Repository is the photo persistence the service drives.
type Repository interface {
	Create(ctx context.Context, np repository.NewPhoto) (repository.Photo, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Photo, error)
	GetByClientRef(ctx context.Context, ref string) (repository.Photo, error)
	ListByJob(ctx context.Context, jobID uuid.UUID, status string) ([]repository.Photo, error)
	ApplyReview(ctx context.Context, rv repository.Review) (repository.Photo, error)
}

// JobRef is the slice of a job the photo workflow needs.
type JobRef struct {
	ID           uuid.UUID
	Status       string
	TechnicianID uuid.UUID
	SupervisorID uuid.UUID
	ClientName   string
}

// JobReader loads jobs. Implemented by an adapter over the jobs repository.
type JobReader interface {
	GetJob(ctx context.Context, jobID uuid.UUID) (JobRef, error)
}

// ActivityRecorder appends audit entries without failing the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, e activity.NewEntry)
}
