package repository

import (
	"time"

	"github.com/google/uuid"
)

// Job is a persisted job joined with the date of its route.
type Job struct {
	ID                   uuid.UUID
	RouteID              uuid.UUID
	RouteOrder           int
	RouteDate            time.Time
	ClientName           string
	ClientEmail          *string
	ClientPhone          *string
	Address              string
	Latitude             *float64
	Longitude            *float64
	ServiceType          string
	Equipment            *string
	TechnicianID         uuid.UUID
	SupervisorID         uuid.UUID
	EstimatedTime        *int
	Instructions         *string
	Status               string
	SupervisorNotes      *string
	ReportSent           bool
	ReportSentAt         *time.Time
	ReportToken          *string
	ReportTokenExpiresAt *time.Time
	CancelReason         *string
	CancelledBy          *uuid.UUID
	CancelledAt          *time.Time
	StartedAt            *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ListFilter narrows List. Nil fields are ignored.
type ListFilter struct {
	RouteID      *uuid.UUID
	TechnicianID *uuid.UUID
	SupervisorID *uuid.UUID
	Statuses     []string
	Date         *time.Time
	Limit        int
	Offset       int
}

// TransitionParams describes one guarded status change.
type TransitionParams struct {
	JobID uuid.UUID
	From  []string
	To    string
	// MarkStarted stamps started_at.
	MarkStarted bool
	// SupervisorNotes replaces the notes when non-nil.
	SupervisorNotes *string
	// Cancel records who cancelled and why.
	Cancel *CancelInfo
	// RequirePhotos adds "at least one photo exists" to the guard.
	RequirePhotos bool
	// RequireApprovalGate adds "no pending, no rejected, at least one approved" to the guard.
	RequireApprovalGate bool
}

// CancelInfo is stored on cancellation.
type CancelInfo struct {
	Reason string
	By     uuid.UUID
}

// NewJob is the input of InsertOnRoute.
type NewJob struct {
	RouteID       uuid.UUID
	ClientName    string
	ClientEmail   *string
	ClientPhone   *string
	Address       string
	Latitude      *float64
	Longitude     *float64
	ServiceType   string
	Equipment     *string
	SupervisorID  uuid.UUID
	EstimatedTime *int
	Instructions  *string
}

// MoveParams relocates a job to another route.
type MoveParams struct {
	JobID          uuid.UUID
	TargetRouteID  uuid.UUID
	ExpectedStatus string
	// ResetStatus puts the job back to scheduled.
	ResetStatus bool
	// SupervisorID replaces the supervisor when non-nil.
	SupervisorID *uuid.UUID
	// AllowPublished lets the job land on a published route (emergency stop).
	AllowPublished bool
	// RequireNoPhotos refuses jobs that already carry evidence.
	RequireNoPhotos bool
}

// UpdateFields are the dispatch fields operations may edit. Nil means unchanged.
type UpdateFields struct {
	ClientName    *string
	ClientEmail   *string
	ClientPhone   *string
	Address       *string
	Latitude      *float64
	Longitude     *float64
	ServiceType   *string
	Equipment     *string
	SupervisorID  *uuid.UUID
	EstimatedTime *int
	Instructions  *string
}

// TechnicianMetrics are the raw aggregates behind the supervisor dashboard.
type TechnicianMetrics struct {
	TechnicianID   uuid.UUID
	TechnicianName string
	JobsThisWeek   int
	JobsThisMonth  int
	PhotoTotal     int
	PhotoApproved  int
	PhotoRejected  int
}
