// Package domain holds the job lifecycle: the closed set of statuses and the
// guard table of legal transitions.
package domain

import (
	"fmt"

	"hvac_dispatch_backend/internal/shared/access"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusScheduled        Status = "scheduled"
	StatusInProgress       Status = "in_progress"
	StatusSupervisorReview Status = "supervisor_review"
	StatusApproved         Status = "approved"
	StatusReportSent       Status = "report_sent"
	StatusCancelled        Status = "cancelled"
)

// ParseStatus validates a stored or requested status value.
func ParseStatus(value string) (Status, error) {
	switch s := Status(value); s {
	case StatusScheduled, StatusInProgress, StatusSupervisorReview, StatusApproved, StatusReportSent, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("unknown job status %q", value)
	}
}

// IsTerminal reports whether no further transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusReportSent || s == StatusCancelled
}

// Transition names an operation of the job state machine.
type Transition string

const (
	TransitionStart      Transition = "start"
	TransitionComplete   Transition = "complete"
	TransitionApprove    Transition = "approve"
	TransitionReject     Transition = "reject"
	TransitionSendReport Transition = "send_report"
	TransitionCancel     Transition = "cancel"
)

// Performer is who may run a transition.
type Performer int

const (
	// PerformerTechnician is the job's assigned technician.
	PerformerTechnician Performer = iota
	// PerformerSupervisor is the job's assigned supervisor.
	PerformerSupervisor
	// PerformerDispatcher is any operations or admin user.
	PerformerDispatcher
)

// Rule is one row of the guard table.
type Rule struct {
	From []Status
	To   Status
	By   Performer
}

var rules = map[Transition]Rule{
	TransitionStart:      {From: []Status{StatusScheduled}, To: StatusInProgress, By: PerformerTechnician},
	TransitionComplete:   {From: []Status{StatusInProgress}, To: StatusSupervisorReview, By: PerformerTechnician},
	TransitionApprove:    {From: []Status{StatusSupervisorReview}, To: StatusApproved, By: PerformerSupervisor},
	TransitionReject:     {From: []Status{StatusSupervisorReview}, To: StatusInProgress, By: PerformerSupervisor},
	TransitionSendReport: {From: []Status{StatusApproved}, To: StatusReportSent, By: PerformerSupervisor},
	TransitionCancel:     {From: []Status{StatusScheduled, StatusInProgress}, To: StatusCancelled, By: PerformerDispatcher},
}

// RuleFor returns the guard row of t.
func RuleFor(t Transition) (Rule, bool) {
	r, ok := rules[t]
	return r, ok
}

// Allows reports whether the rule can fire from current.
func (r Rule) Allows(current Status) bool {
	for _, s := range r.From {
		if s == current {
			return true
		}
	}
	return false
}

// Source returns the single source status of r. Rules with several sources
// return the first; callers that care use From.
func (r Rule) Source() Status {
	return r.From[0]
}

// Owners identifies the people assigned to a job.
type Owners struct {
	TechnicianID uuid.UUID
	SupervisorID uuid.UUID
}

// Permits reports whether actor may perform a transition guarded by r.
func (r Rule) Permits(actor access.Actor, owners Owners) bool {
	switch r.By {
	case PerformerTechnician:
		return actor.IsTechnicianOf(owners.TechnicianID)
	case PerformerSupervisor:
		return actor.IsSupervisorOf(owners.SupervisorID)
	case PerformerDispatcher:
		return actor.IsDispatcher()
	default:
		return false
	}
}

// Editable reports whether dispatch data of a job in s may still change.
func Editable(s Status) bool {
	return !s.IsTerminal()
}

// Movable reports whether a job in s may be reassigned to another route.
func Movable(s Status) bool {
	return !s.IsTerminal()
}

// MaterialsEditable reports whether the materials checklist may change in s.
func MaterialsEditable(s Status) bool {
	return s == StatusScheduled || s == StatusInProgress || s == StatusSupervisorReview
}
