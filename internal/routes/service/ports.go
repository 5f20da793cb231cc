package service

import (
	"context"
	"time"

	jobrepo "hvac_dispatch_backend/internal/jobs/repository"
	jobtransport "hvac_dispatch_backend/internal/jobs/transport"
	"hvac_dispatch_backend/internal/routes/repository"

	"github.com/google/uuid"
)

// Repository is the route persistence the service drives.
type Repository interface {
	Create(ctx context.Context, nr repository.NewRoute) (repository.Route, error)
	FindOrCreate(ctx context.Context, technicianID uuid.UUID, date time.Time, actorID uuid.UUID) (repository.Route, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Route, error)
	FindForTechnician(ctx context.Context, technicianID uuid.UUID, date time.Time) (repository.Route, error)
	ListByDate(ctx context.Context, date time.Time) ([]repository.Route, error)
	ListStops(ctx context.Context, routeID uuid.UUID) ([]repository.Stop, error)
	Reorder(ctx context.Context, routeID uuid.UUID, jobIDs []uuid.UUID) error
	Publish(ctx context.Context, routeID uuid.UUID) (repository.Route, int, error)
	UpdateNotes(ctx context.Context, routeID uuid.UUID, notes *string) (repository.Route, error)
	Delete(ctx context.Context, routeID uuid.UUID) error
}

// JobPlacer puts jobs on routes. Implemented by the jobs service, which owns
// the activity trail and notifications of the placement.
type JobPlacer interface {
	NewJobFromRequest(req jobtransport.CreateJobRequest) (jobrepo.NewJob, error)
	CreateOnRoute(ctx context.Context, actorID uuid.UUID, nj jobrepo.NewJob, emergency bool) (*jobtransport.JobResponse, error)
	MoveOntoRoute(ctx context.Context, actorID, jobID, routeID uuid.UUID, emergency bool) (*jobtransport.JobResponse, error)
}
