package domain

import (
	"testing"

	"hvac_dispatch_backend/internal/shared/access"

	"github.com/google/uuid"
)

var allStatuses = []Status{
	StatusScheduled, StatusInProgress, StatusSupervisorReview,
	StatusApproved, StatusReportSent, StatusCancelled,
}

func TestTransitionSources(t *testing.T) {
	want := map[Transition][]Status{
		TransitionStart:      {StatusScheduled},
		TransitionComplete:   {StatusInProgress},
		TransitionApprove:    {StatusSupervisorReview},
		TransitionReject:     {StatusSupervisorReview},
		TransitionSendReport: {StatusApproved},
		TransitionCancel:     {StatusScheduled, StatusInProgress},
	}

	for transition, sources := range want {
		rule, ok := RuleFor(transition)
		if !ok {
			t.Fatalf("missing rule for %s", transition)
		}
		allowed := make(map[Status]bool)
		for _, s := range sources {
			allowed[s] = true
		}
		for _, s := range allStatuses {
			if rule.Allows(s) != allowed[s] {
				t.Fatalf("%s from %s: got %v, want %v", transition, s, rule.Allows(s), allowed[s])
			}
		}
	}
}

func TestRejectCyclesBackToInProgress(t *testing.T) {
	rule, _ := RuleFor(TransitionReject)
	if rule.To != StatusInProgress {
		t.Fatalf("reject must return the job to in_progress, got %s", rule.To)
	}
}

func TestRulePermits(t *testing.T) {
	owners := Owners{TechnicianID: uuid.New(), SupervisorID: uuid.New()}
	tech := access.Actor{ID: owners.TechnicianID, Roles: []string{access.RoleTechnician}}
	otherTech := access.Actor{ID: uuid.New(), Roles: []string{access.RoleTechnician}}
	sup := access.Actor{ID: owners.SupervisorID, Roles: []string{access.RoleSupervisor}}
	ops := access.Actor{ID: uuid.New(), Roles: []string{access.RoleOperations}}

	start, _ := RuleFor(TransitionStart)
	approve, _ := RuleFor(TransitionApprove)
	cancel, _ := RuleFor(TransitionCancel)

	cases := []struct {
		name  string
		rule  Rule
		actor access.Actor
		want  bool
	}{
		{"owner technician starts", start, tech, true},
		{"other technician cannot start", start, otherTech, false},
		{"supervisor cannot start", start, sup, false},
		{"owner supervisor approves", approve, sup, true},
		{"operations cannot approve", approve, ops, false},
		{"operations cancels", cancel, ops, true},
		{"technician cannot cancel", cancel, tech, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rule.Permits(tc.actor, owners); got != tc.want {
				t.Fatalf("Permits() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseServiceType(t *testing.T) {
	st, err := ParseServiceType("repair")
	if err != nil || st.Label() != "Reparación" {
		t.Fatalf("unexpected repair parse: %v %q", err, st.Label())
	}
	if _, err := ParseServiceType("cleaning"); err == nil {
		t.Fatalf("expected error for unknown service type")
	}
}
