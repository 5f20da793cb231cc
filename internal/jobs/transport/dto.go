package transport

import (
	"time"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// ApproveJobRequest is the body of POST /jobs/:id/approve
type ApproveJobRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=2000"`
}

// ReasonRequest is the body of reject and cancel
type ReasonRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// CreateJobRequest is the body of POST /ops/jobs
type CreateJobRequest struct {
	RouteID       uuid.UUID `json:"routeId" validate:"required"`
	ClientName    string    `json:"clientName" validate:"required,min=1,max=200"`
	ClientEmail   *string   `json:"clientEmail" validate:"omitempty,email,max=254"`
	ClientPhone   *string   `json:"clientPhone" validate:"omitempty,max=32"`
	Address       string    `json:"address" validate:"required,min=1,max=500"`
	Latitude      *float64  `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude     *float64  `json:"longitude" validate:"omitempty,min=-180,max=180"`
	ServiceType   string    `json:"serviceType" validate:"required,oneof=installation maintenance repair"`
	Equipment     *string   `json:"equipment" validate:"omitempty,max=500"`
	SupervisorID  uuid.UUID `json:"supervisorId" validate:"required"`
	EstimatedTime *int      `json:"estimatedTime" validate:"omitempty,min=1,max=1440"`
	Instructions  *string   `json:"instructions" validate:"omitempty,max=2000"`
}

// UpdateJobRequest edits dispatch data. Omitted fields stay unchanged.
type UpdateJobRequest struct {
	ClientName    *string    `json:"clientName" validate:"omitempty,min=1,max=200"`
	ClientEmail   *string    `json:"clientEmail" validate:"omitempty,email,max=254"`
	ClientPhone   *string    `json:"clientPhone" validate:"omitempty,max=32"`
	Address       *string    `json:"address" validate:"omitempty,min=1,max=500"`
	Latitude      *float64   `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude     *float64   `json:"longitude" validate:"omitempty,min=-180,max=180"`
	ServiceType   *string    `json:"serviceType" validate:"omitempty,oneof=installation maintenance repair"`
	Equipment     *string    `json:"equipment" validate:"omitempty,max=500"`
	SupervisorID  *uuid.UUID `json:"supervisorId"`
	EstimatedTime *int       `json:"estimatedTime" validate:"omitempty,min=1,max=1440"`
	Instructions  *string    `json:"instructions" validate:"omitempty,max=2000"`
}

// ReassignJobRequest moves a job to another technician and/or day.
type ReassignJobRequest struct {
	TechnicianID uuid.UUID  `json:"technicianId" validate:"required"`
	Date         string     `json:"date" validate:"required,isodate"`
	ResetStatus  *bool      `json:"resetStatus"`
	SupervisorID *uuid.UUID `json:"supervisorId"`
}

// ListJobsRequest are the query filters of GET /jobs
type ListJobsRequest struct {
	RouteID      string `form:"routeId" validate:"omitempty,uuid"`
	TechnicianID string `form:"technicianId" validate:"omitempty,uuid"`
	SupervisorID string `form:"supervisorId" validate:"omitempty,uuid"`
	Status       string `form:"status" validate:"omitempty,oneof=scheduled in_progress supervisor_review approved report_sent cancelled"`
	Date         string `form:"date" validate:"omitempty,isodate"`
	Limit        int    `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset       int    `form:"offset" validate:"omitempty,min=0"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// JobResponse is the API view of a job.
type JobResponse struct {
	ID                   uuid.UUID  `json:"id"`
	RouteID              uuid.UUID  `json:"routeId"`
	RouteOrder           int        `json:"routeOrder"`
	Date                 string     `json:"date"`
	ClientName           string     `json:"clientName"`
	ClientEmail          *string    `json:"clientEmail,omitempty"`
	ClientPhone          *string    `json:"clientPhone,omitempty"`
	Address              string     `json:"address"`
	Latitude             *float64   `json:"latitude,omitempty"`
	Longitude            *float64   `json:"longitude,omitempty"`
	ServiceType          string     `json:"serviceType"`
	Equipment            *string    `json:"equipment,omitempty"`
	TechnicianID         uuid.UUID  `json:"technicianId"`
	SupervisorID         uuid.UUID  `json:"supervisorId"`
	EstimatedTime        *int       `json:"estimatedTime,omitempty"`
	Instructions         *string    `json:"instructions,omitempty"`
	Status               string     `json:"status"`
	SupervisorNotes      *string    `json:"supervisorNotes,omitempty"`
	ReportSent           bool       `json:"reportSent"`
	ReportSentAt         *time.Time `json:"reportSentAt,omitempty"`
	ReportTokenExpiresAt *time.Time `json:"reportTokenExpiresAt,omitempty"`
	CancelReason         *string    `json:"cancelReason,omitempty"`
	CancelledBy          *uuid.UUID `json:"cancelledBy,omitempty"`
	CancelledAt          *time.Time `json:"cancelledAt,omitempty"`
	StartedAt            *time.Time `json:"startedAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// PhotoSummary is a photo as embedded in a job detail.
type PhotoSummary struct {
	ID           uuid.UUID  `json:"id"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	RejectReason *string    `json:"rejectReason,omitempty"`
	ReplacesID   *uuid.UUID `json:"replacesId,omitempty"`
	URL          string     `json:"url"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// MaterialSummary is a checklist line as embedded in a job detail.
type MaterialSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Quantity int       `json:"quantity"`
	Checked  bool      `json:"checked"`
}

// JobDetailResponse is GET /jobs/:id
type JobDetailResponse struct {
	JobResponse
	PhotoCounts PhotoCountsResponse `json:"photoCounts"`
	Photos      []PhotoSummary      `json:"photos"`
	Materials   []MaterialSummary   `json:"materials"`
}

// PhotoCountsResponse is the review state of a job's photos.
type PhotoCountsResponse struct {
	Pending    int  `json:"pending"`
	Approved   int  `json:"approved"`
	Rejected   int  `json:"rejected"`
	Approvable bool `json:"approvable"`
}

// SendReportResponse confirms a delivered report.
type SendReportResponse struct {
	Job       JobResponse `json:"job"`
	ReportURL string      `json:"reportUrl"`
	SentTo    string      `json:"sentTo"`
}

// MonitorResult reports a scheduled check run.
type MonitorResult struct {
	Check   string `json:"check"`
	Flagged int    `json:"flagged"`
}

// TechnicianMetricsResponse is one row of the supervisor dashboard.
type TechnicianMetricsResponse struct {
	TechnicianID      uuid.UUID `json:"technicianId"`
	TechnicianName    string    `json:"technicianName"`
	JobsThisWeek      int       `json:"jobsThisWeek"`
	JobsThisMonth     int       `json:"jobsThisMonth"`
	AvgPhotosPerJob   float64   `json:"avgPhotosPerJob"`
	PhotoApprovalRate int       `json:"photoApprovalRate"`
}
