package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusByKind(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"not found", NotFound("job not found"), http.StatusNotFound},
		{"validation", Validation("reason is required"), http.StatusBadRequest},
		{"conflict", Conflict("route already exists"), http.StatusConflict},
		{"forbidden", Forbidden("not the assigned technician"), http.StatusForbidden},
		{"invalid state", InvalidState("job is not in progress"), http.StatusConflict},
		{"dependency", Dependency("email failed", errors.New("smtp down")), http.StatusBadGateway},
		{"gone", Gone("link expired"), http.StatusGone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.HTTPStatus(); got != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, got)
			}
		})
	}
}

func TestGetKindFollowsWrappedErrors(t *testing.T) {
	base := InvalidState("job is not scheduled").WithOp("jobs.service.start")
	wrapped := fmt.Errorf("start job: %w", base)

	if !Is(wrapped, KindInvalidState) {
		t.Fatalf("expected wrapped error to carry invalid_state kind, got %s", GetKind(wrapped))
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected plain errors to map to unknown kind")
	}
}

func TestKindCodes(t *testing.T) {
	if KindForbidden.String() != "not_authorized" {
		t.Fatalf("unexpected forbidden code %q", KindForbidden.String())
	}
	if KindDependency.String() != "dependency_failure" {
		t.Fatalf("unexpected dependency code %q", KindDependency.String())
	}
	if Kind(99).String() != "unknown" {
		t.Fatalf("unexpected code for unregistered kind")
	}
}
