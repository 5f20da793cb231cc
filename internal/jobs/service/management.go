package service

import (
	"context"
	"fmt"
	"time"

	"hvac_dispatch_backend/internal/activity"
	"hvac_dispatch_backend/internal/events"
	"hvac_dispatch_backend/internal/jobs/domain"
	"hvac_dispatch_backend/internal/jobs/repository"
	"hvac_dispatch_backend/internal/jobs/transport"
	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/phone"
	"hvac_dispatch_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	dateLayout        = "2006-01-02"
	msgDispatcherOnly = "only operations can manage jobs"
)

// Create adds a new scheduled job at the end of a draft route.
func (s *Service) Create(ctx context.Context, actor access.Actor, req transport.CreateJobRequest) (*transport.JobResponse, error) {
	if !actor.IsDispatcher() {
		return nil, apperr.Forbidden(msgDispatcherOnly)
	}
	nj, err := s.newJob(req)
	if err != nil {
		return nil, err
	}
	return s.CreateOnRoute(ctx, actor.ID, nj, false)
}

// CreateOnRoute inserts a job on a route. Emergency stops may land on a
// published route.
func (s *Service) CreateOnRoute(ctx context.Context, actorID uuid.UUID, nj repository.NewJob, emergency bool) (*transport.JobResponse, error) {
	job, err := s.repo.InsertOnRoute(ctx, nj, emergency)
	if err != nil {
		return nil, err
	}

	action := fmt.Sprintf("Trabajo agregado como parada %d", job.RouteOrder)
	if emergency {
		action = fmt.Sprintf("Parada de emergencia agregada en posición %d", job.RouteOrder)
	}
	s.record(ctx, activity.NewEntry{
		JobID:  job.ID,
		Action: action,
		Type:   activity.TypeAssignment,
		Details: map[string]any{
			"routeId":      job.RouteID,
			"technicianId": job.TechnicianID,
			"order":        job.RouteOrder,
			"emergency":    emergency,
		},
		PerformedBy: actorID,
	})

	resp := toResponse(job)
	return &resp, nil
}

// MoveOntoRoute appends a scheduled job without photos to another route.
func (s *Service) MoveOntoRoute(ctx context.Context, actorID, jobID, routeID uuid.UUID, emergency bool) (*transport.JobResponse, error) {
	before, after, err := s.repo.MoveToRoute(ctx, repository.MoveParams{
		JobID:           jobID,
		TargetRouteID:   routeID,
		ExpectedStatus:  string(domain.StatusScheduled),
		AllowPublished:  emergency,
		RequireNoPhotos: true,
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, activity.NewEntry{
		JobID:  after.ID,
		Action: fmt.Sprintf("Trabajo movido a la parada %d", after.RouteOrder),
		Type:   activity.TypeAssignment,
		Details: map[string]any{
			"fromRouteId": before.RouteID,
			"toRouteId":   after.RouteID,
			"order":       after.RouteOrder,
			"emergency":   emergency,
		},
		PerformedBy: actorID,
	})
	s.notifyReassignment(ctx, before, after)

	resp := toResponse(after)
	return &resp, nil
}

// Update edits dispatch data of an open job.
func (s *Service) Update(ctx context.Context, actor access.Actor, jobID uuid.UUID, req transport.UpdateJobRequest) (*transport.JobResponse, error) {
	if !actor.IsDispatcher() {
		return nil, apperr.Forbidden(msgDispatcherOnly)
	}

	fields := repository.UpdateFields{
		ClientName:    sanitize.TextPtr(req.ClientName),
		ClientEmail:   sanitize.TextPtr(req.ClientEmail),
		Address:       sanitize.TextPtr(req.Address),
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		ServiceType:   req.ServiceType,
		Equipment:     sanitize.TextPtr(req.Equipment),
		SupervisorID:  req.SupervisorID,
		EstimatedTime: req.EstimatedTime,
		Instructions:  sanitize.TextPtr(req.Instructions),
	}
	if req.ClientPhone != nil {
		fields.ClientPhone = phone.NormalizeE164Ptr(req.ClientPhone, s.region)
	}
	if req.ClientName != nil && fields.ClientName == nil {
		return nil, apperr.Validation("client name cannot be blank")
	}
	if req.Address != nil && fields.Address == nil {
		return nil, apperr.Validation("address cannot be blank")
	}
	if fields.ServiceType != nil {
		if _, err := domain.ParseServiceType(*fields.ServiceType); err != nil {
			return nil, apperr.Validation(err.Error())
		}
	}

	job, err := s.repo.Update(ctx, jobID, fields)
	if err != nil {
		return nil, err
	}

	s.record(ctx, activity.NewEntry{
		JobID:       job.ID,
		Action:      "Datos del trabajo actualizados",
		Type:        activity.TypeAssignment,
		PerformedBy: actor.ID,
	})

	resp := toResponse(job)
	return &resp, nil
}

// Delete removes a scheduled job that carries no photos.
func (s *Service) Delete(ctx context.Context, actor access.Actor, jobID uuid.UUID) error {
	if !actor.IsDispatcher() {
		return apperr.Forbidden(msgDispatcherOnly)
	}
	if err := s.repo.Delete(ctx, jobID); err != nil {
		return err
	}
	s.log.Info("job deleted", "jobId", jobID, "actorId", actor.ID)
	return nil
}

// Reassign moves a job to the route of another technician or day, creating
// that route when it does not exist yet.
func (s *Service) Reassign(ctx context.Context, actor access.Actor, jobID uuid.UUID, req transport.ReassignJobRequest) (*transport.JobResponse, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, apperr.Validation("invalid date")
	}
	if req.TechnicianID == uuid.Nil {
		return nil, apperr.Validation("technicianId is required")
	}
	if !actor.IsDispatcher() {
		return nil, apperr.Forbidden(msgDispatcherOnly)
	}
	if s.routes == nil {
		return nil, apperr.Internal("route lookup is not configured")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !domain.Movable(domain.Status(job.Status)) {
		return nil, apperr.InvalidState(fmt.Sprintf("a %s job cannot be reassigned", job.Status)).
			WithDetails(map[string]string{"status": job.Status})
	}

	routeID, err := s.routes.FindOrCreateRoute(ctx, req.TechnicianID, date, actor.ID)
	if err != nil {
		return nil, err
	}

	resetStatus := true
	if req.ResetStatus != nil {
		resetStatus = *req.ResetStatus
	}

	before, after, err := s.repo.MoveToRoute(ctx, repository.MoveParams{
		JobID:          jobID,
		TargetRouteID:  routeID,
		ExpectedStatus: job.Status,
		ResetStatus:    resetStatus,
		SupervisorID:   req.SupervisorID,
		AllowPublished: true,
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, activity.NewEntry{
		JobID:  after.ID,
		Action: "Trabajo reasignado",
		Type:   activity.TypeAssignment,
		Details: map[string]any{
			"oldDate":         before.RouteDate.Format(dateLayout),
			"newDate":         after.RouteDate.Format(dateLayout),
			"oldTechnicianId": before.TechnicianID,
			"newTechnicianId": after.TechnicianID,
			"statusPreserved": !resetStatus,
			"previousStatus":  before.Status,
			"supervisorId":    after.SupervisorID,
		},
		PerformedBy: actor.ID,
	})
	if before.Status != after.Status {
		s.publishStatusChange(ctx, after, before.Status, actor.ID)
	}
	if s.bus != nil {
		s.bus.Publish(ctx, events.JobReassigned{
			BaseEvent:       events.NewBaseEvent(),
			JobID:           after.ID,
			OldTechnicianID: before.TechnicianID,
			NewTechnicianID: after.TechnicianID,
			OldDate:         before.RouteDate,
			NewDate:         after.RouteDate,
			ActorID:         actor.ID,
		})
	}
	s.notifyReassignment(ctx, before, after)

	resp := toResponse(after)
	return &resp, nil
}

// notifyReassignment tells both technicians when a job changes hands.
func (s *Service) notifyReassignment(ctx context.Context, before, after repository.Job) {
	if before.TechnicianID == after.TechnicianID {
		return
	}
	s.notify(ctx, notices.Notice{
		UserID:  before.TechnicianID,
		Type:    notices.JobReassigned,
		Title:   "Trabajo reasignado",
		Message: fmt.Sprintf("El trabajo de %s ya no está en tu ruta.", after.ClientName),
		JobID:   jobRef(after.ID),
	})
	s.notify(ctx, notices.Notice{
		UserID:  after.TechnicianID,
		Type:    notices.JobReassigned,
		Title:   "Nuevo trabajo asignado",
		Message: fmt.Sprintf("%s - %s el %s.", after.ClientName, serviceLabel(after.ServiceType), shortDate(after.RouteDate)),
		JobID:   jobRef(after.ID),
	})
}

func (s *Service) newJob(req transport.CreateJobRequest) (repository.NewJob, error) {
	name := sanitize.Text(req.ClientName)
	address := sanitize.Text(req.Address)
	if name == "" {
		return repository.NewJob{}, apperr.Validation("client name is required")
	}
	if address == "" {
		return repository.NewJob{}, apperr.Validation("address is required")
	}
	if _, err := domain.ParseServiceType(req.ServiceType); err != nil {
		return repository.NewJob{}, apperr.Validation(err.Error())
	}
	if req.RouteID == uuid.Nil || req.SupervisorID == uuid.Nil {
		return repository.NewJob{}, apperr.Validation("routeId and supervisorId are required")
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return repository.NewJob{}, apperr.Validation("latitude and longitude must be provided together")
	}

	return repository.NewJob{
		RouteID:       req.RouteID,
		ClientName:    name,
		ClientEmail:   sanitize.TextPtr(req.ClientEmail),
		ClientPhone:   phone.NormalizeE164Ptr(req.ClientPhone, s.region),
		Address:       address,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		ServiceType:   req.ServiceType,
		Equipment:     sanitize.TextPtr(req.Equipment),
		SupervisorID:  req.SupervisorID,
		EstimatedTime: req.EstimatedTime,
		Instructions:  sanitize.TextPtr(req.Instructions),
	}, nil
}

// NewJobFromRequest validates a create request for callers that place the
// job themselves, such as the route planner.
func (s *Service) NewJobFromRequest(req transport.CreateJobRequest) (repository.NewJob, error) {
	return s.newJob(req)
}
