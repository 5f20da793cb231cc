//go:build integration

package repository

import (
	"context"
	"testing"

	"hvac_dispatch_backend/internal/shared/pgtest"
	"hvac_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
)

func stopOrder(t *testing.T, repo *Repository, routeID uuid.UUID) map[uuid.UUID]int {
	t.Helper()
	stops, err := repo.ListStops(context.Background(), routeID)
	if err != nil {
		t.Fatalf("list stops: %v", err)
	}
	order := make(map[uuid.UUID]int, len(stops))
	for _, st := range stops {
		order[st.JobID] = st.RouteOrder
	}
	return order
}

func TestReorderRenumbersAroundActiveOrderIndex(t *testing.T) {
	pool := pgtest.Open(t)
	seed := pgtest.NewSeed(t, pool)
	crew := seed.Crew()
	a := seed.Job(crew.Route, 1, crew.Technician, crew.Supervisor, "scheduled")
	b := seed.Job(crew.Route, 2, crew.Technician, crew.Supervisor, "in_progress")
	c := seed.Job(crew.Route, 3, crew.Technician, crew.Supervisor, "scheduled")
	// Cancelled jobs sit outside jobs_route_order_active_key and keep their slot.
	cancelled := seed.Job(crew.Route, 2, crew.Technician, crew.Supervisor, "cancelled")
	repo := New(pool)
	ctx := context.Background()

	// Every target slot is held by another active job, so renumbering in
	// place would hit the unique index.
	if err := repo.Reorder(ctx, crew.Route, []uuid.UUID{c, a, b}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	order := stopOrder(t, repo, crew.Route)
	if order[c] != 1 || order[a] != 2 || order[b] != 3 || order[cancelled] != 2 {
		t.Fatalf("unexpected order %v", order)
	}

	for name, ids := range map[string][]uuid.UUID{
		"partial":   {c, a},
		"duplicate": {c, a, a},
		"cancelled": {c, a, cancelled},
		"foreign":   {c, a, uuid.New()},
	} {
		if err := repo.Reorder(ctx, crew.Route, ids); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	order = stopOrder(t, repo, crew.Route)
	if order[c] != 1 || order[a] != 2 || order[b] != 3 {
		t.Fatalf("failed reorder changed the order: %v", order)
	}

	if err := repo.Reorder(ctx, uuid.New(), []uuid.UUID{a}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for an unknown route, got %v", err)
	}

	if _, _, err := repo.Publish(ctx, crew.Route); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := repo.Reorder(ctx, crew.Route, []uuid.UUID{a, b, c}); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected invalid state on a published route, got %v", err)
	}
	order = stopOrder(t, repo, crew.Route)
	if order[c] != 1 || order[a] != 2 || order[b] != 3 {
		t.Fatalf("published route was reordered: %v", order)
	}
}
