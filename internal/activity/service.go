package activity

import (
	"context"

	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/logger"
	"hvac_dispatch_backend/platform/sanitize"

	"github.com/google/uuid"
)

const maxNoteLength = 2000

// Store is the persistence the service needs.
type Store interface {
	Append(ctx context.Context, e NewEntry) error
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]Entry, error)
}

// JobParticipants resolves who works on a job.
type JobParticipants interface {
	Participants(ctx context.Context, jobID uuid.UUID) (technicianID, supervisorID uuid.UUID, err error)
}

// Service writes and reads job audit trails.
type Service struct {
	store Store
	jobs  JobParticipants
	log   *logger.Logger
}

// NewService creates the activity service.
func NewService(store Store, jobs JobParticipants, log *logger.Logger) *Service {
	return &Service{store: store, jobs: jobs, log: log}
}

// Record appends an entry and only logs a failure. Audit writes never undo
// the state change they describe.
func (s *Service) Record(ctx context.Context, e NewEntry) {
	if err := s.store.Append(ctx, e); err != nil {
		s.log.Warn("failed to write activity entry", "error", err, "jobId", e.JobID, "type", string(e.Type))
	}
}

// List returns the trail of a job for one of its participants.
func (s *Service) List(ctx context.Context, actor access.Actor, jobID uuid.UUID) ([]Entry, error) {
	if err := s.ensureParticipant(ctx, actor, jobID); err != nil {
		return nil, err
	}
	return s.store.ListByJob(ctx, jobID)
}

// AddNote appends a free-text note from a participant of the job.
func (s *Service) AddNote(ctx context.Context, actor access.Actor, jobID uuid.UUID, text string) error {
	note := sanitize.Text(text)
	if note == "" {
		return apperr.Validation("note text is required")
	}
	if len(note) > maxNoteLength {
		return apperr.Validation("note is too long")
	}
	if err := s.ensureParticipant(ctx, actor, jobID); err != nil {
		return err
	}
	return s.store.Append(ctx, NewEntry{
		JobID:       jobID,
		Action:      note,
		Type:        TypeNote,
		PerformedBy: actor.ID,
	})
}

func (s *Service) ensureParticipant(ctx context.Context, actor access.Actor, jobID uuid.UUID) error {
	technicianID, supervisorID, err := s.jobs.Participants(ctx, jobID)
	if err != nil {
		return err
	}
	if actor.IsDispatcher() || actor.IsTechnicianOf(technicianID) || actor.IsSupervisorOf(supervisorID) {
		return nil
	}
	return apperr.Forbidden("not a participant of this job")
}
