// Package service implements the route planner: per-technician daily stop
// lists, their draft/published lifecycle and stop ordering.
package service

import (
	"context"
	"fmt"
	"time"

	"hvac_dispatch_backend/internal/events"
	jobtransport "hvac_dispatch_backend/internal/jobs/transport"
	"hvac_dispatch_backend/internal/routes/domain"
	"hvac_dispatch_backend/internal/routes/repository"
	"hvac_dispatch_backend/internal/routes/transport"
	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/logger"
	"hvac_dispatch_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	dateLayout        = "2006-01-02"
	msgDispatcherOnly = "only operations can manage routes"
)

// Service owns route planning.
type Service struct {
	repo     Repository
	jobs     JobPlacer
	notifier notices.Notifier
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates the route planner service.
func New(repo Repository, jobs JobPlacer, notifier notices.Notifier, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		jobs:     jobs,
		notifier: notifier,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// SetClock replaces the clock used to resolve "today".
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Create opens a draft route for a technician and date.
func (s *Service) Create(ctx context.Context, actor access.Actor, req transport.CreateRouteRequest) (*transport.RouteResponse, error) {
	if !actor.IsDispatcher() {
		return nil, apperr.Forbidden(msgDispatcherOnly)
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	rt, err := s.repo.Create(ctx, repository.NewRoute{
		TechnicianID: req.TechnicianID,
		Date:         date,
		CreatedBy:    actor.ID,
		Notes:        sanitize.TextPtr(req.Notes),
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("route created", "routeId", rt.ID, "technicianId", rt.TechnicianID, "date", req.Date)
	return s.withStops(ctx, rt)
}

// AddStop appends a job to a route. Published routes only take emergency
// stops.
func (s *Service) AddStop(ctx context.Context, actor access.Actor, routeID uuid.UUID, req transport.AddStopRequest) (*jobtransport.JobResponse, error) {
	if (req.JobID == nil) == (req.Job == nil) {
		return nil, apperr.Validation("provide either jobId or job")
	}
	if !actor.IsDispatcher() {
		return nil, apperr.Forbidden(msgDispatcherOnly)
	}
	rt, err := s.repo.GetByID(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if rt.Published && !req.Emergency {
		return nil, apperr.InvalidState("route is published; only emergency stops can be added").
			WithDetails(map[string]bool{"published": true})
	}

	if req.JobID != nil {
		return s.jobs.MoveOntoRoute(ctx, actor.ID, *req.JobID, routeID, req.Emergency)
	}
	jobReq := *req.Job
	jobReq.RouteID = routeID
	nj, err := s.jobs.NewJobFromRequest(jobReq)
	if err != nil {
		return nil, err
	}
	return s.jobs.CreateOnRoute(ctx, actor.ID, nj, req.Emergency)
}

// Reorder rewrites the stop order of a draft route from the complete list of
// its active jobs.
func (s *Service) Reorder(ctx context.Context, actor access.Actor, routeID uuid.UUID, req transport.ReorderRequest) (*transport.RouteResponse, error) {
	if !actor.IsDispatcher() {
		return nil, apperr.Forbidden(msgDispatcherOnly)
	}
	current, err := s.repo.GetByID(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if current.Published {
		return nil, apperr.InvalidState("published routes cannot be reordered")
	}
	if len(req.JobIDs) == 0 {
		return nil, apperr.Validation("jobIds must not be empty")
	}
	if err := s.repo.Reorder(ctx, routeID, req.JobIDs); err != nil {
		return nil, err
	}
	rt, err := s.repo.GetByID(ctx, routeID)
	if err != nil {
		return nil, err
	}
	return s.withStops(ctx, rt)
}

// Publish makes a draft route visible to its technician and tells them.
func (s *Service) Publish(ctx context.Context, actor access.Actor, routeID uuid.UUID) (*transport.RouteResponse, error) {
	if !actor.IsDispatcher() {
		return nil, apperr.Forbidden(msgDispatcherOnly)
	}
	rt, stops, err := s.repo.Publish(ctx, routeID)
	if err != nil {
		return nil, err
	}
	s.log.Info("route published", "routeId", rt.ID, "technicianId", rt.TechnicianID, "stops", stops)

	if s.notifier != nil {
		err := s.notifier.Notify(ctx, notices.Notice{
			UserID:  rt.TechnicianID,
			Type:    notices.RoutePublished,
			Title:   "Ruta publicada",
			Message: fmt.Sprintf("Tu ruta del %s tiene %d %s.", rt.Date.Format("02/01/2006"), stops, pluralStops(stops)),
		})
		if err != nil {
			s.log.Warn("failed to send notification", "error", err, "type", string(notices.RoutePublished))
		}
	}
	if s.bus != nil {
		s.bus.Publish(ctx, events.RoutePublished{
			BaseEvent:    events.NewBaseEvent(),
			RouteID:      rt.ID,
			TechnicianID: rt.TechnicianID,
			Date:         rt.Date,
			StopCount:    stops,
		})
	}
	return s.withStops(ctx, rt)
}

// ListForDate returns every route planned for a date with its stops and
// planning figures.
func (s *Service) ListForDate(ctx context.Context, actor access.Actor, req transport.ListRoutesRequest) ([]transport.RouteResponse, error) {
	if !actor.IsDispatcher() {
		return nil, apperr.Forbidden(msgDispatcherOnly)
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	routes, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	out := make([]transport.RouteResponse, 0, len(routes))
	for _, rt := range routes {
		resp, err := s.withStops(ctx, rt)
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

// Get returns one route. Technicians only see their own published routes.
func (s *Service) Get(ctx context.Context, actor access.Actor, routeID uuid.UUID) (*transport.RouteResponse, error) {
	rt, err := s.repo.GetByID(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if !actor.IsDispatcher() {
		if !actor.IsTechnicianOf(rt.TechnicianID) {
			return nil, apperr.Forbidden("not your route")
		}
		if !rt.Published {
			return nil, apperr.NotFound("route not found")
		}
	}
	return s.withStops(ctx, rt)
}

// Mine returns the caller's published route for a date, today by default.
func (s *Service) Mine(ctx context.Context, actor access.Actor, req transport.MyRouteRequest) (*transport.RouteResponse, error) {
	if !actor.Has(access.RoleTechnician) {
		return nil, apperr.Forbidden("only technicians have routes")
	}
	now := s.now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if req.Date != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			return nil, err
		}
		date = parsed
	}
	rt, err := s.repo.FindForTechnician(ctx, actor.ID, date)
	if err != nil {
		return nil, err
	}
	if !rt.Published {
		return nil, apperr.NotFound("no published route for this date")
	}
	return s.withStops(ctx, rt)
}

// UpdateNotes replaces the dispatcher notes of a route.
func (s *Service) UpdateNotes(ctx context.Context, actor access.Actor, routeID uuid.UUID, req transport.UpdateNotesRequest) (*transport.RouteResponse, error) {
	if !actor.IsDispatcher() {
		return nil, apperr.Forbidden(msgDispatcherOnly)
	}
	rt, err := s.repo.UpdateNotes(ctx, routeID, sanitize.TextPtr(req.Notes))
	if err != nil {
		return nil, err
	}
	return s.withStops(ctx, rt)
}

// Delete removes a draft route and its jobs.
func (s *Service) Delete(ctx context.Context, actor access.Actor, routeID uuid.UUID) error {
	if !actor.IsDispatcher() {
		return apperr.Forbidden(msgDispatcherOnly)
	}
	if err := s.repo.Delete(ctx, routeID); err != nil {
		return err
	}
	s.log.Info("route deleted", "routeId", routeID, "actorId", actor.ID)
	return nil
}

// FindOrCreateRoute resolves the route a reassigned job lands on.
func (s *Service) FindOrCreateRoute(ctx context.Context, technicianID uuid.UUID, date time.Time, actorID uuid.UUID) (uuid.UUID, error) {
	rt, created, err := s.repo.FindOrCreate(ctx, technicianID, date, actorID)
	if err != nil {
		return uuid.Nil, err
	}
	if created {
		s.log.Info("route created for reassignment", "routeId", rt.ID, "technicianId", technicianID)
	}
	return rt.ID, nil
}

func (s *Service) withStops(ctx context.Context, rt repository.Route) (*transport.RouteResponse, error) {
	stops, err := s.repo.ListStops(ctx, rt.ID)
	if err != nil {
		return nil, err
	}

	resp := transport.RouteResponse{
		ID:             rt.ID,
		TechnicianID:   rt.TechnicianID,
		TechnicianName: rt.TechnicianName,
		Date:           rt.Date.Format(dateLayout),
		Published:      rt.Published,
		PublishedAt:    rt.PublishedAt,
		Notes:          rt.Notes,
		Stops:          make([]transport.StopResponse, 0, len(stops)),
		CreatedAt:      rt.CreatedAt,
	}
	plan := make([]domain.Stop, 0, len(stops))
	for _, st := range stops {
		cancelled := st.Status == "cancelled"
		if !cancelled {
			resp.StopCount++
		}
		plan = append(plan, domain.Stop{
			EstimatedMinutes: st.EstimatedTime,
			Latitude:         st.Latitude,
			Longitude:        st.Longitude,
			Cancelled:        cancelled,
		})
		resp.Stops = append(resp.Stops, transport.StopResponse{
			JobID:         st.JobID,
			RouteOrder:    st.RouteOrder,
			ClientName:    st.ClientName,
			Address:       st.Address,
			Latitude:      st.Latitude,
			Longitude:     st.Longitude,
			ServiceType:   st.ServiceType,
			Status:        st.Status,
			EstimatedTime: st.EstimatedTime,
		})
	}
	resp.WorkloadHours = domain.WorkloadHours(plan)
	resp.DistanceKm = domain.DistanceKm(plan)
	return &resp, nil
}

func parseDate(value string) (time.Time, error) {
	date, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, apperr.Validation("date must be YYYY-MM-DD")
	}
	return date, nil
}

func pluralStops(n int) string {
	if n == 1 {
		return "parada"
	}
	return "paradas"
}
