// Package service implements the job state machine and the dispatch
// operations around it.
package service

import (
	"context"
	"fmt"
	"time"

	"hvac_dispatch_backend/internal/activity"
	"hvac_dispatch_backend/internal/email"
	"hvac_dispatch_backend/internal/events"
	"hvac_dispatch_backend/internal/jobs/domain"
	"hvac_dispatch_backend/internal/jobs/repository"
	"hvac_dispatch_backend/internal/jobs/transport"
	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/logger"
	"hvac_dispatch_backend/platform/token"

	"github.com/google/uuid"
)

const (
	reportTokenBytes  = 32
	msgNotParticipant = "not a participant of this job"
)

// Service owns job transitions and their side effects.
type Service struct {
	repo      Repository
	activity  ActivityRecorder
	notifier  notices.Notifier
	directory Directory
	sender    email.Sender
	bus       events.Bus
	reportCfg ReportConfig
	region    string
	log       *logger.Logger

	routes    RouteFinder
	photos    PhotoLister
	materials MaterialLister

	now      func() time.Time
	newToken func() (string, error)
}

// Deps groups the collaborators every job operation needs.
type Deps struct {
	Repo        Repository
	Activity    ActivityRecorder
	Notifier    notices.Notifier
	Directory   Directory
	Sender      email.Sender
	Bus         events.Bus
	ReportCfg   ReportConfig
	PhoneRegion string
	Log         *logger.Logger
}

// New creates the jobs service.
func New(d Deps) *Service {
	return &Service{
		repo:      d.Repo,
		activity:  d.Activity,
		notifier:  d.Notifier,
		directory: d.Directory,
		sender:    d.Sender,
		bus:       d.Bus,
		reportCfg: d.ReportCfg,
		region:    d.PhoneRegion,
		log:       d.Log,
		now:       time.Now,
		newToken: func() (string, error) {
			return token.GenerateRandomToken(reportTokenBytes)
		},
	}
}

// SetRouteFinder injects the route lookup used by Reassign.
func (s *Service) SetRouteFinder(routes RouteFinder) {
	s.routes = routes
}

// SetPhotoLister injects the photo listing used by Get.
func (s *Service) SetPhotoLister(photos PhotoLister) {
	s.photos = photos
}

// SetMaterialLister injects the materials listing used by Get.
func (s *Service) SetMaterialLister(materials MaterialLister) {
	s.materials = materials
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Get returns a job with its evidence for one of its participants.
func (s *Service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*transport.JobDetailResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, job) {
		return nil, apperr.Forbidden(msgNotParticipant)
	}

	counts, err := s.repo.CountPhotos(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &transport.JobDetailResponse{
		JobResponse: toResponse(job),
		PhotoCounts: transport.PhotoCountsResponse{
			Pending:    counts.Pending,
			Approved:   counts.Approved,
			Rejected:   counts.Rejected,
			Approvable: counts.Approvable(),
		},
		Photos:    []transport.PhotoSummary{},
		Materials: []transport.MaterialSummary{},
	}

	if s.photos != nil {
		photos, err := s.photos.ListJobPhotos(ctx, id)
		if err != nil {
			return nil, err
		}
		detail.Photos = photos
	}
	if s.materials != nil {
		materials, err := s.materials.ListJobMaterials(ctx, id)
		if err != nil {
			return nil, err
		}
		detail.Materials = materials
	}
	return detail, nil
}

// List returns jobs visible to the actor. Technicians and supervisors only
// see jobs assigned to them.
func (s *Service) List(ctx context.Context, actor access.Actor, req transport.ListJobsRequest) ([]transport.JobResponse, error) {
	filter := repository.ListFilter{Limit: req.Limit, Offset: req.Offset}

	if id, ok := parseOptionalUUID(req.RouteID); ok {
		filter.RouteID = &id
	}
	if id, ok := parseOptionalUUID(req.TechnicianID); ok {
		filter.TechnicianID = &id
	}
	if id, ok := parseOptionalUUID(req.SupervisorID); ok {
		filter.SupervisorID = &id
	}
	if req.Status != "" {
		filter.Statuses = []string{req.Status}
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return nil, apperr.Validation("invalid date")
		}
		filter.Date = &date
	}

	switch {
	case actor.IsDispatcher():
	case actor.Has(access.RoleSupervisor):
		filter.SupervisorID = &actor.ID
	case actor.Has(access.RoleTechnician):
		filter.TechnicianID = &actor.ID
	default:
		return nil, apperr.Forbidden("role cannot list jobs")
	}

	jobs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]transport.JobResponse, len(jobs))
	for i, j := range jobs {
		out[i] = toResponse(j)
	}
	return out, nil
}

// Participants returns the technician and supervisor of a job.
func (s *Service) Participants(ctx context.Context, jobID uuid.UUID) (uuid.UUID, uuid.UUID, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return job.TechnicianID, job.SupervisorID, nil
}

func canView(actor access.Actor, job repository.Job) bool {
	return actor.IsDispatcher() || actor.IsTechnicianOf(job.TechnicianID) || actor.IsSupervisorOf(job.SupervisorID)
}

func owners(job repository.Job) domain.Owners {
	return domain.Owners{TechnicianID: job.TechnicianID, SupervisorID: job.SupervisorID}
}

// notify delivers a notice and only logs failures.
func (s *Service) notify(ctx context.Context, n notices.Notice) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn("failed to send notification", "error", err, "type", string(n.Type), "userId", n.UserID)
	}
}

func (s *Service) record(ctx context.Context, e activity.NewEntry) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, e)
}

func (s *Service) publishStatusChange(ctx context.Context, job repository.Job, from string, actorID uuid.UUID) {
	s.log.WithContext(ctx).JobTransition(job.ID.String(), from, job.Status, actorID.String())
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.JobStatusChanged{
		BaseEvent:    events.NewBaseEvent(),
		JobID:        job.ID,
		RouteID:      job.RouteID,
		TechnicianID: job.TechnicianID,
		SupervisorID: job.SupervisorID,
		ActorID:      actorID,
		OldStatus:    from,
		NewStatus:    job.Status,
	})
}

func (s *Service) displayName(ctx context.Context, userID uuid.UUID) string {
	if s.directory == nil {
		return ""
	}
	name, err := s.directory.DisplayName(ctx, userID)
	if err != nil {
		s.log.Warn("failed to resolve display name", "error", err, "userId", userID)
		return ""
	}
	return name
}

func toResponse(j repository.Job) transport.JobResponse {
	return transport.JobResponse{
		ID:                   j.ID,
		RouteID:              j.RouteID,
		RouteOrder:           j.RouteOrder,
		Date:                 j.RouteDate.Format("2006-01-02"),
		ClientName:           j.ClientName,
		ClientEmail:          j.ClientEmail,
		ClientPhone:          j.ClientPhone,
		Address:              j.Address,
		Latitude:             j.Latitude,
		Longitude:            j.Longitude,
		ServiceType:          j.ServiceType,
		Equipment:            j.Equipment,
		TechnicianID:         j.TechnicianID,
		SupervisorID:         j.SupervisorID,
		EstimatedTime:        j.EstimatedTime,
		Instructions:         j.Instructions,
		Status:               j.Status,
		SupervisorNotes:      j.SupervisorNotes,
		ReportSent:           j.ReportSent,
		ReportSentAt:         j.ReportSentAt,
		ReportTokenExpiresAt: j.ReportTokenExpiresAt,
		CancelReason:         j.CancelReason,
		CancelledBy:          j.CancelledBy,
		CancelledAt:          j.CancelledAt,
		StartedAt:            j.StartedAt,
		CreatedAt:            j.CreatedAt,
		UpdatedAt:            j.UpdatedAt,
	}
}

// ToResponse exposes the API mapping to adapters.
func ToResponse(j repository.Job) transport.JobResponse {
	return toResponse(j)
}

func parseOptionalUUID(value string) (uuid.UUID, bool) {
	if value == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func jobRef(id uuid.UUID) *uuid.UUID {
	return &id
}

func serviceLabel(serviceType string) string {
	return domain.ServiceType(serviceType).Label()
}

func shortDate(t time.Time) string {
	return fmt.Sprintf("%02d/%02d/%d", t.Day(), int(t.Month()), t.Year())
}
