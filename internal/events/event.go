// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"hvac_dispatch_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Jobs Domain Events
// =============================================================================

// JobStatusChanged is published after a job transition has been committed.
type JobStatusChanged struct {
	BaseEvent
	JobID        uuid.UUID `json:"jobId"`
	RouteID      uuid.UUID `json:"routeId"`
	TechnicianID uuid.UUID `json:"technicianId"`
	SupervisorID uuid.UUID `json:"supervisorId"`
	ActorID      uuid.UUID `json:"actorId"`
	OldStatus    string    `json:"oldStatus"`
	NewStatus    string    `json:"newStatus"`
}

func (e JobStatusChanged) EventName() string { return "jobs.job.status_changed" }

// JobReassigned is published when a job moves to another technician or date.
type JobReassigned struct {
	BaseEvent
	JobID           uuid.UUID `json:"jobId"`
	OldTechnicianID uuid.UUID `json:"oldTechnicianId"`
	NewTechnicianID uuid.UUID `json:"newTechnicianId"`
	OldDate         time.Time `json:"oldDate"`
	NewDate         time.Time `json:"newDate"`
	ActorID         uuid.UUID `json:"actorId"`
}

func (e JobReassigned) EventName() string { return "jobs.job.reassigned" }

// =============================================================================
// Photos Domain Events
// =============================================================================

// PhotoUploaded is published when a technician adds evidence to a job.
type PhotoUploaded struct {
	BaseEvent
	PhotoID      uuid.UUID  `json:"photoId"`
	JobID        uuid.UUID  `json:"jobId"`
	UploadedBy   uuid.UUID  `json:"uploadedBy"`
	SupervisorID uuid.UUID  `json:"supervisorId"`
	ReplacesID   *uuid.UUID `json:"replacesId,omitempty"`
}

func (e PhotoUploaded) EventName() string { return "photos.photo.uploaded" }

// PhotoReviewed is published when a supervisor approves or rejects a photo.
type PhotoReviewed struct {
	BaseEvent
	PhotoID    uuid.UUID `json:"photoId"`
	JobID      uuid.UUID `json:"jobId"`
	UploadedBy uuid.UUID `json:"uploadedBy"`
	ReviewerID uuid.UUID `json:"reviewerId"`
	Status     string    `json:"status"`
}

func (e PhotoReviewed) EventName() string { return "photos.photo.reviewed" }

// =============================================================================
// Routes Domain Events
// =============================================================================

// RoutePublished is published when a draft route becomes visible to its technician.
type RoutePublished struct {
	BaseEvent
	RouteID      uuid.UUID `json:"routeId"`
	TechnicianID uuid.UUID `json:"technicianId"`
	Date         time.Time `json:"date"`
	StopCount    int       `json:"stopCount"`
}

func (e RoutePublished) EventName() string { return "routes.route.published" }
