package materials

import (
	"context"
	"fmt"

	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/logger"
	"hvac_dispatch_backend/platform/sanitize"

	"github.com/google/uuid"
)

const maxNameLength = 200

// Store is the persistence the service needs.
type Store interface {
	AddMany(ctx context.Context, jobID uuid.UUID, items []NewMaterial) ([]Material, error)
	GetByID(ctx context.Context, id uuid.UUID) (Material, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]Material, error)
	Update(ctx context.Context, id uuid.UUID, ch Changes) (Material, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// JobRef is what the checklist needs to know about a job.
type JobRef struct {
	TechnicianID uuid.UUID
	SupervisorID uuid.UUID
	Status       string
}

// JobReader loads jobs.
type JobReader interface {
	GetJob(ctx context.Context, jobID uuid.UUID) (JobRef, error)
}

// Service manages job checklists.
type Service struct {
	store Store
	jobs  JobReader
	log   *logger.Logger
}

// NewService creates the materials service.
func NewService(store Store, jobs JobReader, log *logger.Logger) *Service {
	return &Service{store: store, jobs: jobs, log: log}
}

// List returns a job's checklist for one of its participants.
func (s *Service) List(ctx context.Context, actor access.Actor, jobID uuid.UUID) ([]Material, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !actor.IsDispatcher() && !actor.IsTechnicianOf(job.TechnicianID) && !actor.IsSupervisorOf(job.SupervisorID) {
		return nil, apperr.Forbidden("not a participant of this job")
	}
	return s.store.ListByJob(ctx, jobID)
}

// ListByJob returns a checklist without an access check, for job details.
func (s *Service) ListByJob(ctx context.Context, jobID uuid.UUID) ([]Material, error) {
	return s.store.ListByJob(ctx, jobID)
}

// Add appends lines to a job's checklist.
func (s *Service) Add(ctx context.Context, actor access.Actor, jobID uuid.UUID, req AddMaterialsRequest) ([]Material, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validation("at least one material is required")
	}
	items := make([]NewMaterial, 0, len(req.Items))
	for i, in := range req.Items {
		name, err := cleanName(in.Name)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("item %d: %s", i+1, err.Error()))
		}
		if in.Quantity < 1 {
			return nil, apperr.Validation(fmt.Sprintf("item %d: quantity must be at least 1", i+1))
		}
		items = append(items, NewMaterial{Name: name, Quantity: in.Quantity})
	}
	if err := s.ensureEditable(ctx, actor, jobID); err != nil {
		return nil, err
	}
	return s.store.AddMany(ctx, jobID, items)
}

// Update edits one line.
func (s *Service) Update(ctx context.Context, actor access.Actor, materialID uuid.UUID, req UpdateMaterialRequest) (Material, error) {
	ch := Changes{Quantity: req.Quantity, Checked: req.Checked}
	if req.Name != nil {
		name, err := cleanName(*req.Name)
		if err != nil {
			return Material{}, apperr.Validation(err.Error())
		}
		ch.Name = &name
	}
	if req.Quantity != nil && *req.Quantity < 1 {
		return Material{}, apperr.Validation("quantity must be at least 1")
	}

	m, err := s.store.GetByID(ctx, materialID)
	if err != nil {
		return Material{}, err
	}
	if err := s.ensureEditable(ctx, actor, m.JobID); err != nil {
		return Material{}, err
	}
	return s.store.Update(ctx, materialID, ch)
}

// Delete removes one line.
func (s *Service) Delete(ctx context.Context, actor access.Actor, materialID uuid.UUID) error {
	m, err := s.store.GetByID(ctx, materialID)
	if err != nil {
		return err
	}
	if err := s.ensureEditable(ctx, actor, m.JobID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, materialID); err != nil {
		return err
	}
	s.log.Info("material deleted", "materialId", materialID, "jobId", m.JobID, "actorId", actor.ID)
	return nil
}

// ensureEditable allows the job's technician and operations to change the
// checklist until the job is approved.
func (s *Service) ensureEditable(ctx context.Context, actor access.Actor, jobID uuid.UUID) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !actor.IsDispatcher() && !actor.IsTechnicianOf(job.TechnicianID) {
		return apperr.Forbidden("only the assigned technician or operations can edit materials")
	}
	switch job.Status {
	case "approved", "report_sent", "cancelled":
		return apperr.InvalidState(fmt.Sprintf("materials are locked once the job is %s", job.Status)).
			WithDetails(map[string]string{"status": job.Status})
	}
	return nil
}

func cleanName(raw string) (string, error) {
	name := sanitize.Text(raw)
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	if len(name) > maxNameLength {
		return "", fmt.Errorf("name is too long")
	}
	return name, nil
}
