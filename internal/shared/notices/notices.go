// Package notices lists the notification types users can receive and
// toggle in their preferences.
package notices

import (
	"context"

	"github.com/google/uuid"
)

// Type tags a notification so clients can render it and users can mute it.
type Type string

const (
	RoutePublished    Type = "route_published"
	JobReadyForReview Type = "job_ready_for_review"
	PhotoRejected     Type = "photo_rejected"
	JobRejected       Type = "job_rejected"
	JobApproved       Type = "job_approved"
	ReportSent        Type = "report_sent"
	JobCancelled      Type = "job_cancelled"
	JobOverdue        Type = "job_overdue"
	JobRunningLate    Type = "job_running_late"
	JobReassigned     Type = "job_reassigned"
)

var all = []Type{
	RoutePublished,
	JobReadyForReview,
	PhotoRejected,
	JobRejected,
	JobApproved,
	ReportSent,
	JobCancelled,
	JobOverdue,
	JobRunningLate,
	JobReassigned,
}

// All returns every notification type the system emits.
func All() []Type {
	out := make([]Type, len(all))
	copy(out, all)
	return out
}

// IsKnown reports whether t is a notification type the system emits.
func IsKnown(t Type) bool {
	for _, k := range all {
		if k == t {
			return true
		}
	}
	return false
}

// Preferences is a sparse per-user override map. Missing types are enabled.
type Preferences map[Type]bool

// Enabled reports whether the user wants notifications of type t.
func (p Preferences) Enabled(t Type) bool {
	enabled, ok := p[t]
	return !ok || enabled
}

// Notice is one notification addressed to one user.
type Notice struct {
	UserID  uuid.UUID
	Type    Type
	Title   string
	Message string
	JobID   *uuid.UUID
}

// Notifier delivers notices. Implementations drop notices the recipient
// has muted and report only delivery errors.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}
