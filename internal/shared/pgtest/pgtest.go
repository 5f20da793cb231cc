// Package pgtest connects repository integration tests to a real Postgres
// and seeds the rows they need. Tests skip when TEST_DATABASE_URL is unset.
package pgtest

import (
	"context"
	"os"
	"testing"

	"hvac_dispatch_backend/migrations"
	"hvac_dispatch_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnvDatabaseURL names the variable holding the test database DSN.
const EnvDatabaseURL = "TEST_DATABASE_URL"

// migrationLock serialises goose runs from packages tested in parallel.
const migrationLock = 7391004

// RouteDate is the date every seeded route is planned for.
const RouteDate = "2026-03-12"

type dsn string

func (d dsn) GetDatabaseURL() string { return string(d) }

// Open returns a pool on a migrated test database, closed when t ends.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv(EnvDatabaseURL)
	if url == "" {
		t.Skipf("skipping integration test: %s not set", EnvDatabaseURL)
	}
	ctx := context.Background()

	pool, err := db.NewPool(ctx, dsn(url))
	if err != nil {
		t.Skipf("skipping integration test: cannot connect to database: %v", err)
	}
	t.Cleanup(pool.Close)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLock); err != nil {
		t.Fatalf("take migration lock: %v", err)
	}
	defer func() { _, _ = conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, migrationLock) }()

	if err := db.RunMigrations(ctx, dsn(url), migrations.FS); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return pool
}

// Seed inserts fixture rows and deletes them again when the test ends.
type Seed struct {
	t    *testing.T
	pool *pgxpool.Pool
}

// NewSeed binds fixture helpers to pool.
func NewSeed(t *testing.T, pool *pgxpool.Pool) *Seed {
	return &Seed{t: t, pool: pool}
}

func (s *Seed) cleanup(id uuid.UUID, queries ...string) {
	s.t.Cleanup(func() {
		for _, q := range queries {
			if _, err := s.pool.Exec(context.Background(), q, id); err != nil {
				s.t.Logf("cleanup %s: %v", id, err)
				return
			}
		}
	})
}

// Profile inserts an active user with role.
func (s *Seed) Profile(role string) uuid.UUID {
	s.t.Helper()
	id := uuid.New()
	_, err := s.pool.Exec(context.Background(), `
		INSERT INTO profiles (id, full_name, email, role) VALUES ($1, $2, $3, $4)
	`, id, "Test "+role, id.String()+"@test.local", role)
	if err != nil {
		s.t.Fatalf("seed profile: %v", err)
	}
	s.cleanup(id, `DELETE FROM profiles WHERE id = $1`)
	return id
}

// Route inserts a draft route for technicianID on RouteDate.
func (s *Seed) Route(technicianID, createdBy uuid.UUID) uuid.UUID {
	s.t.Helper()
	id := uuid.New()
	_, err := s.pool.Exec(context.Background(), `
		INSERT INTO routes (id, technician_id, date, created_by) VALUES ($1, $2, $3::date, $4)
	`, id, technicianID, RouteDate, createdBy)
	if err != nil {
		s.t.Fatalf("seed route: %v", err)
	}
	s.cleanup(id,
		`DELETE FROM photos WHERE job_id IN (SELECT id FROM jobs WHERE route_id = $1)`,
		`DELETE FROM jobs WHERE route_id = $1`,
		`DELETE FROM routes WHERE id = $1`,
	)
	return id
}

// Job inserts a job on routeID at order with the given status.
func (s *Seed) Job(routeID uuid.UUID, order int, technicianID, supervisorID uuid.UUID, status string) uuid.UUID {
	s.t.Helper()
	id := uuid.New()
	_, err := s.pool.Exec(context.Background(), `
		INSERT INTO jobs (id, route_id, route_order, client_name, address, service_type, technician_id, supervisor_id, status)
		VALUES ($1, $2, $3, 'Ana López', 'Av. Reforma 100', 'maintenance', $4, $5, $6)
	`, id, routeID, order, technicianID, supervisorID, status)
	if err != nil {
		s.t.Fatalf("seed job: %v", err)
	}
	return id
}

// Photo inserts a photo on jobID with the given review status.
func (s *Seed) Photo(jobID, uploadedBy uuid.UUID, status string) uuid.UUID {
	s.t.Helper()
	id := uuid.New()
	var reason *string
	if status == "rejected" {
		r := "blurry"
		reason = &r
	}
	_, err := s.pool.Exec(context.Background(), `
		INSERT INTO photos (id, job_id, storage_path, uploaded_by, status, reject_reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, jobID, "jobs/"+jobID.String()+"/"+id.String()+".jpg", uploadedBy, status, reason)
	if err != nil {
		s.t.Fatalf("seed photo: %v", err)
	}
	return id
}

// Crew holds the ids of a seeded technician, supervisor, operations user
// and the technician's draft route.
type Crew struct {
	Technician uuid.UUID
	Supervisor uuid.UUID
	Operations uuid.UUID
	Route      uuid.UUID
}

// Crew seeds the people and route most repository tests start from.
func (s *Seed) Crew() Crew {
	s.t.Helper()
	c := Crew{
		Operations: s.Profile("operations"),
		Supervisor: s.Profile("supervisor"),
		Technician: s.Profile("technician"),
	}
	c.Route = s.Route(c.Technician, c.Operations)
	return c
}
