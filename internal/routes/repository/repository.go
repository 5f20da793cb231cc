package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hvac_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate    = "routes.repository.create"
	opGetByID   = "routes.repository.get_by_id"
	opReorder   = "routes.repository.reorder"
	opPublish   = "routes.repository.publish"
	opDelete    = "routes.repository.delete"
	opFindOwner = "routes.repository.find_for_technician"

	routeNotFoundMsg     = "route not found"
	unknownTechnicianMsg = "technician not found or inactive"

	// reorderOffset moves active stops out of the way of the unique
	// (route_id, route_order) index while they are renumbered.
	reorderOffset = 1000000
)

// Route is one technician's plan for one date.
type Route struct {
	ID             uuid.UUID
	TechnicianID   uuid.UUID
	TechnicianName string
	Date           time.Time
	Published      bool
	PublishedAt    *time.Time
	CreatedBy      uuid.UUID
	Notes          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Stop is a job as listed on its route.
type Stop struct {
	JobID         uuid.UUID
	RouteOrder    int
	ClientName    string
	Address       string
	Latitude      *float64
	Longitude     *float64
	ServiceType   string
	Status        string
	EstimatedTime *int
}

// NewRoute is the input of Create.
type NewRoute struct {
	TechnicianID uuid.UUID
	Date         time.Time
	CreatedBy    uuid.UUID
	Notes        *string
}

// Repository persists routes and the order of their stops.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a routes repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const routeColumns = `r.id, r.technician_id, p.full_name, r.date, r.published, r.published_at,
	r.created_by, r.notes, r.created_at, r.updated_at`

func scanRoute(row pgx.Row) (Route, error) {
	var rt Route
	err := row.Scan(&rt.ID, &rt.TechnicianID, &rt.TechnicianName, &rt.Date, &rt.Published, &rt.PublishedAt,
		&rt.CreatedBy, &rt.Notes, &rt.CreatedAt, &rt.UpdatedAt)
	return rt, err
}

// Create inserts a draft route. A second route for the same technician and
// date fails with a conflict; callers re-query instead of retrying.
func (r *Repository) Create(ctx context.Context, nr NewRoute) (Route, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO routes (technician_id, date, created_by, notes)
		SELECT $1, $2, $3, $4
		WHERE EXISTS (SELECT 1 FROM profiles WHERE id = $1 AND role = 'technician' AND is_active)
		RETURNING id
	`, nr.TechnicianID, nr.Date, nr.CreatedBy, nr.Notes).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Route{}, apperr.Validation(unknownTechnicianMsg).WithOp(opCreate)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return Route{}, apperr.Conflict("a route already exists for this technician and date").WithOp(opCreate)
			case "23503":
				return Route{}, apperr.Validation("unknown creator").WithOp(opCreate)
			}
		}
		return Route{}, fmt.Errorf("failed to create route: %w", err)
	}
	return r.GetByID(ctx, id)
}

// FindOrCreate returns the technician's route for date, creating a draft when
// there is none. A concurrent creator winning the insert is resolved by
// reading its row.
func (r *Repository) FindOrCreate(ctx context.Context, technicianID uuid.UUID, date time.Time, actorID uuid.UUID) (Route, bool, error) {
	var id uuid.UUID
	created := true
	err := r.pool.QueryRow(ctx, `
		INSERT INTO routes (technician_id, date, created_by)
		SELECT $1, $2, $3
		WHERE EXISTS (SELECT 1 FROM profiles WHERE id = $1 AND role = 'technician' AND is_active)
		ON CONFLICT (technician_id, date) DO NOTHING
		RETURNING id
	`, technicianID, date, actorID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		created = false
		err = r.pool.QueryRow(ctx, `SELECT id FROM routes WHERE technician_id = $1 AND date = $2`, technicianID, date).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return Route{}, false, apperr.Validation(unknownTechnicianMsg).WithOp(opCreate)
		}
	}
	if err != nil {
		return Route{}, false, fmt.Errorf("failed to find or create route: %w", err)
	}
	rt, err := r.GetByID(ctx, id)
	return rt, created, err
}

// GetByID returns a route by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Route, error) {
	rt, err := scanRoute(r.pool.QueryRow(ctx, `
		SELECT `+routeColumns+`
		FROM routes r JOIN profiles p ON p.id = r.technician_id
		WHERE r.id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Route{}, apperr.NotFound(routeNotFoundMsg).WithOp(opGetByID)
		}
		return Route{}, fmt.Errorf("failed to get route: %w", err)
	}
	return rt, nil
}

// FindForTechnician returns the technician's route on date.
func (r *Repository) FindForTechnician(ctx context.Context, technicianID uuid.UUID, date time.Time) (Route, error) {
	rt, err := scanRoute(r.pool.QueryRow(ctx, `
		SELECT `+routeColumns+`
		FROM routes r JOIN profiles p ON p.id = r.technician_id
		WHERE r.technician_id = $1 AND r.date = $2
	`, technicianID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Route{}, apperr.NotFound(routeNotFoundMsg).WithOp(opFindOwner)
		}
		return Route{}, fmt.Errorf("failed to find technician route: %w", err)
	}
	return rt, nil
}

// ListByDate returns every route planned for date, by technician name.
func (r *Repository) ListByDate(ctx context.Context, date time.Time) ([]Route, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+routeColumns+`
		FROM routes r JOIN profiles p ON p.id = r.technician_id
		WHERE r.date = $1
		ORDER BY p.full_name, r.id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	items := make([]Route, 0)
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		items = append(items, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate routes: %w", err)
	}
	return items, nil
}

// ListStops returns the jobs of a route in stop order, cancelled ones last.
func (r *Repository) ListStops(ctx context.Context, routeID uuid.UUID) ([]Stop, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, route_order, client_name, address, latitude, longitude, service_type, status, estimated_time
		FROM jobs
		WHERE route_id = $1
		ORDER BY (status = 'cancelled'), route_order
	`, routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stops: %w", err)
	}
	defer rows.Close()

	items := make([]Stop, 0)
	for rows.Next() {
		var s Stop
		if err := rows.Scan(&s.JobID, &s.RouteOrder, &s.ClientName, &s.Address, &s.Latitude, &s.Longitude,
			&s.ServiceType, &s.Status, &s.EstimatedTime); err != nil {
			return nil, fmt.Errorf("failed to scan stop: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stops: %w", err)
	}
	return items, nil
}

// lockDraft locks a route row and fails when it is already published.
func lockDraft(ctx context.Context, tx pgx.Tx, routeID uuid.UUID, op, publishedMsg string) error {
	var published bool
	err := tx.QueryRow(ctx, `SELECT published FROM routes WHERE id = $1 FOR UPDATE`, routeID).Scan(&published)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(routeNotFoundMsg).WithOp(op)
		}
		return fmt.Errorf("failed to lock route: %w", err)
	}
	if published {
		return apperr.InvalidState(publishedMsg).WithOp(op)
	}
	return nil
}

// Reorder renumbers the active stops of a draft route to follow jobIDs,
// starting at 1. jobIDs must name every active job of the route exactly once.
func (r *Repository) Reorder(ctx context.Context, routeID uuid.UUID, jobIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockDraft(ctx, tx, routeID, opReorder, "published routes cannot be reordered"); err != nil {
		return err
	}

	rows, err := tx.Query(ctx, `SELECT id FROM jobs WHERE route_id = $1 AND status <> 'cancelled'`, routeID)
	if err != nil {
		return fmt.Errorf("failed to load route stops: %w", err)
	}
	active, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return fmt.Errorf("failed to scan route stops: %w", err)
	}
	if !sameSet(active, jobIDs) {
		return apperr.Validation("order must list every active job of the route exactly once").
			WithOp(opReorder).
			WithDetails(map[string]int{"activeJobs": len(active)})
	}

	if _, err := tx.Exec(ctx, `
		UPDATE jobs SET route_order = route_order + $2
		WHERE route_id = $1 AND status <> 'cancelled'
	`, routeID, reorderOffset); err != nil {
		return fmt.Errorf("failed to park stop order: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE jobs j SET route_order = v.ord, updated_at = now()
		FROM unnest($2::uuid[]) WITH ORDINALITY AS v(id, ord)
		WHERE j.id = v.id AND j.route_id = $1
	`, routeID, jobIDs); err != nil {
		return fmt.Errorf("failed to write stop order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	return nil
}

func sameSet(active, requested []uuid.UUID) bool {
	if len(active) != len(requested) {
		return false
	}
	want := make(map[uuid.UUID]struct{}, len(active))
	for _, id := range active {
		want[id] = struct{}{}
	}
	for _, id := range requested {
		if _, ok := want[id]; !ok {
			return false
		}
		delete(want, id)
	}
	return len(want) == 0
}

// Publish makes a draft route with at least one active job visible to its
// technician. It returns the route and its active stop count.
func (r *Repository) Publish(ctx context.Context, routeID uuid.UUID) (Route, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Route{}, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockDraft(ctx, tx, routeID, opPublish, "route is already published"); err != nil {
		return Route{}, 0, err
	}

	var stops int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM jobs WHERE route_id = $1 AND status <> 'cancelled'
	`, routeID).Scan(&stops); err != nil {
		return Route{}, 0, fmt.Errorf("failed to count stops: %w", err)
	}
	if stops == 0 {
		return Route{}, 0, apperr.InvalidState("a route needs at least one job to be published").WithOp(opPublish)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE routes SET published = true, published_at = now(), updated_at = now()
		WHERE id = $1 AND published = false
	`, routeID)
	if err != nil {
		return Route{}, 0, fmt.Errorf("failed to publish route: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Route{}, 0, apperr.InvalidState("route is already published").WithOp(opPublish)
	}
	if err := tx.Commit(ctx); err != nil {
		return Route{}, 0, fmt.Errorf("failed to commit publish: %w", err)
	}

	rt, err := r.GetByID(ctx, routeID)
	return rt, stops, err
}

// UpdateNotes replaces the dispatcher notes of a route.
func (r *Repository) UpdateNotes(ctx context.Context, routeID uuid.UUID, notes *string) (Route, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE routes SET notes = $2, updated_at = now() WHERE id = $1`, routeID, notes)
	if err != nil {
		return Route{}, fmt.Errorf("failed to update route notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Route{}, apperr.NotFound(routeNotFoundMsg).WithOp(opGetByID)
	}
	return r.GetByID(ctx, routeID)
}

// Delete removes a draft route together with its jobs. Routes holding a job
// with photos are kept.
func (r *Repository) Delete(ctx context.Context, routeID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockDraft(ctx, tx, routeID, opDelete, "published routes cannot be deleted"); err != nil {
		return err
	}

	var withPhotos bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM photos ph JOIN jobs j ON j.id = ph.job_id WHERE j.route_id = $1)
	`, routeID).Scan(&withPhotos); err != nil {
		return fmt.Errorf("failed to check route photos: %w", err)
	}
	if withPhotos {
		return apperr.InvalidState("route holds jobs with photos").WithOp(opDelete)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM jobs WHERE route_id = $1`, routeID); err != nil {
		return fmt.Errorf("failed to delete route jobs: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM routes WHERE id = $1`, routeID); err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit route delete: %w", err)
	}
	return nil
}
