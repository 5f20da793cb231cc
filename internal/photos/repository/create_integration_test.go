//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"hvac_dispatch_backend/internal/shared/pgtest"
	"hvac_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func newPhoto(jobID, uploadedBy uuid.UUID, ref string) NewPhoto {
	id := uuid.New()
	np := NewPhoto{
		ID:          id,
		JobID:       jobID,
		StoragePath: "jobs/" + jobID.String() + "/" + id.String() + ".jpg",
		Description: "evaporador",
		UploadedBy:  uploadedBy,
	}
	if ref != "" {
		np.ClientRef = &ref
	}
	return np
}

func photoCount(t *testing.T, pool *pgxpool.Pool, jobID uuid.UUID) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), `SELECT count(*) FROM photos WHERE job_id = $1`, jobID).Scan(&n); err != nil {
		t.Fatalf("count photos: %v", err)
	}
	return n
}

func TestCreateGuardsJobStatusAndReplays(t *testing.T) {
	pool := pgtest.Open(t)
	seed := pgtest.NewSeed(t, pool)
	crew := seed.Crew()
	jobID := seed.Job(crew.Route, 1, crew.Technician, crew.Supervisor, "in_progress")
	repo := New(pool)
	ctx := context.Background()
	ref := "device-" + uuid.NewString()

	first, created, err := repo.Create(ctx, newPhoto(jobID, crew.Technician, ref))
	if err != nil || !created {
		t.Fatalf("create: created=%v err=%v", created, err)
	}
	again, created, err := repo.Create(ctx, newPhoto(jobID, crew.Technician, ref))
	if err != nil || created || again.ID != first.ID {
		t.Fatalf("expected replay of %s, got %s created=%v err=%v", first.ID, again.ID, created, err)
	}

	if _, err := pool.Exec(ctx, `UPDATE jobs SET status = 'supervisor_review' WHERE id = $1`, jobID); err != nil {
		t.Fatalf("complete job: %v", err)
	}
	late, created, err := repo.Create(ctx, newPhoto(jobID, crew.Technician, ref))
	if err != nil || created || late.ID != first.ID {
		t.Fatalf("expected replay after completion, got %s created=%v err=%v", late.ID, created, err)
	}
	if _, _, err := repo.Create(ctx, newPhoto(jobID, crew.Technician, "device-"+uuid.NewString())); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected invalid state for a new photo after completion, got %v", err)
	}
	if _, _, err := repo.Create(ctx, newPhoto(jobID, crew.Technician, "")); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected invalid state for an unreferenced photo after completion, got %v", err)
	}
	if n := photoCount(t, pool, jobID); n != 1 {
		t.Fatalf("expected 1 photo, got %d", n)
	}

	if _, _, err := repo.Create(ctx, newPhoto(uuid.New(), crew.Technician, "")); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for an unknown job, got %v", err)
	}
}

func TestCreateWaitsForConcurrentStatusChange(t *testing.T) {
	pool := pgtest.Open(t)
	seed := pgtest.NewSeed(t, pool)
	crew := seed.Crew()
	jobID := seed.Job(crew.Route, 1, crew.Technician, crew.Supervisor, "in_progress")
	repo := New(pool)
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `UPDATE jobs SET status = 'supervisor_review' WHERE id = $1`, jobID); err != nil {
		t.Fatalf("complete job: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := repo.Create(ctx, newPhoto(jobID, crew.Technician, ""))
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("insert did not wait for the status change: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	select {
	case err := <-done:
		if !apperr.Is(err, apperr.KindInvalidState) {
			t.Fatalf("expected invalid state after the job left in_progress, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("insert still blocked after commit")
	}
	if n := photoCount(t, pool, jobID); n != 0 {
		t.Fatalf("expected no photos, got %d", n)
	}
}
