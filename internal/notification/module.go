// Package notification persists in-app notifications, filters them through
// user preferences and streams them, together with live job updates, over SSE.
package notification

import (
	"context"

	"hvac_dispatch_backend/internal/events"
	apphttp "hvac_dispatch_backend/internal/http"
	"hvac_dispatch_backend/internal/notification/handler"
	"hvac_dispatch_backend/internal/notification/inapp"
	"hvac_dispatch_backend/internal/notification/sse"
	"hvac_dispatch_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the notification store, the SSE hub and the bus listeners.
type Module struct {
	Dispatcher *inapp.Service
	sse        *sse.Service
	handler    *handler.HTTPHandler
	log        *logger.Logger
}

// NewModule builds the module. Call Subscribe once the bus is ready.
func NewModule(pool *pgxpool.Pool, prefs inapp.PreferenceStore, log *logger.Logger) *Module {
	stream := sse.New(log)
	return newModule(inapp.NewRepository(pool), prefs, stream, log)
}

func newModule(store inapp.Store, prefs inapp.PreferenceStore, stream *sse.Service, log *logger.Logger) *Module {
	svc := inapp.NewService(store, prefs, stream, log)
	return &Module{
		Dispatcher: svc,
		sse:        stream,
		handler:    handler.NewHTTPHandler(svc, stream),
		log:        log,
	}
}

func (m *Module) Name() string {
	return "notification"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

// Subscribe pushes live job and photo changes to the people watching them.
func (m *Module) Subscribe(bus events.Bus) {
	bus.Subscribe(events.JobStatusChanged{}.EventName(), events.HandlerFunc(m.onJobStatusChanged))
	bus.Subscribe(events.PhotoReviewed{}.EventName(), events.HandlerFunc(m.onPhotoReviewed))
	bus.Subscribe(events.PhotoUploaded{}.EventName(), events.HandlerFunc(m.onPhotoUploaded))
}

// Close disconnects every open stream.
func (m *Module) Close() {
	m.sse.Close()
}

func (m *Module) onJobStatusChanged(_ context.Context, event events.Event) error {
	e, ok := event.(events.JobStatusChanged)
	if !ok {
		return nil
	}
	jobID := e.JobID
	payload := sse.Event{
		Type:  sse.EventJobStatusChanged,
		JobID: &jobID,
		Data: map[string]string{
			"oldStatus": e.OldStatus,
			"newStatus": e.NewStatus,
		},
	}
	for _, userID := range distinct(e.TechnicianID, e.SupervisorID) {
		m.sse.Publish(userID, payload)
	}
	return nil
}

func (m *Module) onPhotoReviewed(_ context.Context, event events.Event) error {
	e, ok := event.(events.PhotoReviewed)
	if !ok {
		return nil
	}
	jobID := e.JobID
	m.sse.Publish(e.UploadedBy, sse.Event{
		Type:  sse.EventPhotoReviewed,
		JobID: &jobID,
		Data: map[string]string{
			"photoId": e.PhotoID.String(),
			"status":  e.Status,
		},
	})
	return nil
}

func (m *Module) onPhotoUploaded(_ context.Context, event events.Event) error {
	e, ok := event.(events.PhotoUploaded)
	if !ok || e.SupervisorID == uuid.Nil {
		return nil
	}
	jobID := e.JobID
	m.sse.Publish(e.SupervisorID, sse.Event{
		Type:  sse.EventPhotoUploaded,
		JobID: &jobID,
		Data:  map[string]string{"photoId": e.PhotoID.String()},
	})
	return nil
}

func distinct(ids ...uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		dup := false
		for _, seen := range out {
			if seen == id {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, id)
		}
	}
	return out
}

var _ apphttp.Module = (*Module)(nil)
