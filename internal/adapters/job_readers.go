package adapters

import (
	"context"

	"hvac_dispatch_backend/internal/jobs/domain"
	jobsrepo "hvac_dispatch_backend/internal/jobs/repository"
	"hvac_dispatch_backend/internal/materials"
	photosvc "hvac_dispatch_backend/internal/photos/service"
	"hvac_dispatch_backend/internal/report"

	"github.com/google/uuid"
)

// JobStore is the narrow view of the jobs repository other modules read
// through.
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (jobsrepo.Job, error)
	FindByReportToken(ctx context.Context, token string) (jobsrepo.Job, error)
}

// PhotoJobReader implements photos/service.JobReader.
type PhotoJobReader struct {
	jobs JobStore
}

func NewPhotoJobReader(jobs JobStore) *PhotoJobReader {
	return &PhotoJobReader{jobs: jobs}
}

func (a *PhotoJobReader) GetJob(ctx context.Context, jobID uuid.UUID) (photosvc.JobRef, error) {
	job, err := a.jobs.GetByID(ctx, jobID)
	if err != nil {
		return photosvc.JobRef{}, err
	}
	return photosvc.JobRef{
		ID:           job.ID,
		Status:       job.Status,
		TechnicianID: job.TechnicianID,
		SupervisorID: job.SupervisorID,
		ClientName:   job.ClientName,
	}, nil
}

// MaterialJobReader implements materials.JobReader.
type MaterialJobReader struct {
	jobs JobStore
}

func NewMaterialJobReader(jobs JobStore) *MaterialJobReader {
	return &MaterialJobReader{jobs: jobs}
}

func (a *MaterialJobReader) GetJob(ctx context.Context, jobID uuid.UUID) (materials.JobRef, error) {
	job, err := a.jobs.GetByID(ctx, jobID)
	if err != nil {
		return materials.JobRef{}, err
	}
	return materials.JobRef{
		TechnicianID: job.TechnicianID,
		SupervisorID: job.SupervisorID,
		Status:       job.Status,
	}, nil
}

// JobParticipants implements activity.JobParticipants straight from the
// repository, so the activity module can be built before the jobs service.
type JobParticipants struct {
	jobs JobStore
}

func NewJobParticipants(jobs JobStore) *JobParticipants {
	return &JobParticipants{jobs: jobs}
}

func (a *JobParticipants) Participants(ctx context.Context, jobID uuid.UUID) (uuid.UUID, uuid.UUID, error) {
	job, err := a.jobs.GetByID(ctx, jobID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return job.TechnicianID, job.SupervisorID, nil
}

// ReportJobSource implements report.JobSource.
type ReportJobSource struct {
	jobs JobStore
}

func NewReportJobSource(jobs JobStore) *ReportJobSource {
	return &ReportJobSource{jobs: jobs}
}

func (a *ReportJobSource) FindByReportToken(ctx context.Context, token string) (report.Job, error) {
	job, err := a.jobs.FindByReportToken(ctx, token)
	if err != nil {
		return report.Job{}, err
	}
	return report.Job{
		ID:              job.ID,
		ClientName:      job.ClientName,
		Address:         job.Address,
		ServiceLabel:    domain.ServiceType(job.ServiceType).Label(),
		Equipment:       job.Equipment,
		TechnicianID:    job.TechnicianID,
		SupervisorNotes: job.SupervisorNotes,
		ReportSent:      job.ReportSent && job.Status == string(domain.StatusReportSent),
		ReportSentAt:    job.ReportSentAt,
		ExpiresAt:       job.ReportTokenExpiresAt,
	}, nil
}
