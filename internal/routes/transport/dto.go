package transport

import (
	"time"

	jobtransport "hvac_dispatch_backend/internal/jobs/transport"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateRouteRequest is the body of POST /ops/routes
type CreateRouteRequest struct {
	TechnicianID uuid.UUID `json:"technicianId" validate:"required"`
	Date         string    `json:"date" validate:"required,isodate"`
	Notes        *string   `json:"notes" validate:"omitempty,max=2000"`
}

// AddStopRequest appends a stop. Exactly one of JobID (move an existing
// scheduled job) or Job (create a new one) is set.
type AddStopRequest struct {
	JobID     *uuid.UUID                     `json:"jobId"`
	Job       *jobtransport.CreateJobRequest `json:"job"`
	Emergency bool                           `json:"emergency"`
}

// ReorderRequest is the full desired stop order of a draft route.
type ReorderRequest struct {
	JobIDs []uuid.UUID `json:"jobIds" validate:"required,min=1,max=200"`
}

// UpdateNotesRequest is the body of PATCH /ops/routes/:id
type UpdateNotesRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=2000"`
}

// ListRoutesRequest are the query filters of GET /ops/routes
type ListRoutesRequest struct {
	Date string `form:"date" validate:"required,isodate"`
}

// MyRouteRequest are the query filters of GET /routes/mine
type MyRouteRequest struct {
	Date string `form:"date" validate:"omitempty,isodate"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// StopResponse is one job as shown on a route.
type StopResponse struct {
	JobID         uuid.UUID `json:"jobId"`
	RouteOrder    int       `json:"routeOrder"`
	ClientName    string    `json:"clientName"`
	Address       string    `json:"address"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	ServiceType   string    `json:"serviceType"`
	Status        string    `json:"status"`
	EstimatedTime *int      `json:"estimatedTime,omitempty"`
}

// RouteResponse is the API view of a route with its stops.
type RouteResponse struct {
	ID             uuid.UUID      `json:"id"`
	TechnicianID   uuid.UUID      `json:"technicianId"`
	TechnicianName string         `json:"technicianName"`
	Date           string         `json:"date"`
	Published      bool           `json:"published"`
	PublishedAt    *time.Time     `json:"publishedAt,omitempty"`
	Notes          *string        `json:"notes,omitempty"`
	Stops          []StopResponse `json:"stops"`
	StopCount      int            `json:"stopCount"`
	WorkloadHours  float64        `json:"workloadHours"`
	DistanceKm     float64        `json:"distanceKm"`
	CreatedAt      time.Time      `json:"createdAt"`
}
