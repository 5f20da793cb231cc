package repository

import (
	"context"
	"errors"
	"fmt"

	"hvac_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	opInsertOnRoute = "jobs.repository.insert_on_route"
	opMoveToRoute   = "jobs.repository.move_to_route"

	routeNotFoundMsg  = "route not found"
	routePublishedMsg = "route is published; only emergency stops can be added"
)

type lockedRoute struct {
	technicianID uuid.UUID
	published    bool
}

// lockRoute takes the row lock that serialises stop numbering on a route.
func lockRoute(ctx context.Context, tx pgx.Tx, routeID uuid.UUID, allowPublished bool) (lockedRoute, error) {
	var lr lockedRoute
	err := tx.QueryRow(ctx, `SELECT technician_id, published FROM routes WHERE id = $1 FOR UPDATE`, routeID).
		Scan(&lr.technicianID, &lr.published)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return lockedRoute{}, apperr.NotFound(routeNotFoundMsg)
		}
		return lockedRoute{}, fmt.Errorf("failed to lock route: %w", err)
	}
	if lr.published && !allowPublished {
		return lockedRoute{}, apperr.InvalidState(routePublishedMsg)
	}
	return lr, nil
}

func nextRouteOrder(ctx context.Context, tx pgx.Tx, routeID uuid.UUID) (int, error) {
	var next int
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(route_order), 0) + 1
		FROM jobs
		WHERE route_id = $1 AND status <> 'cancelled'
	`, routeID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next route order: %w", err)
	}
	return next, nil
}

// InsertOnRoute creates a scheduled job at the end of a route. The route's
// technician becomes the job's technician.
func (r *Repository) InsertOnRoute(ctx context.Context, nj NewJob, allowPublished bool) (Job, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Job{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lr, err := lockRoute(ctx, tx, nj.RouteID, allowPublished)
	if err != nil {
		return Job{}, err
	}
	order, err := nextRouteOrder(ctx, tx, nj.RouteID)
	if err != nil {
		return Job{}, err
	}

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO jobs (
			route_id, route_order, client_name, client_email, client_phone, address,
			latitude, longitude, service_type, equipment, technician_id, supervisor_id,
			estimated_time, instructions, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 'scheduled')
		RETURNING id
	`, nj.RouteID, order, nj.ClientName, nj.ClientEmail, nj.ClientPhone, nj.Address,
		nj.Latitude, nj.Longitude, nj.ServiceType, nj.Equipment, lr.technicianID, nj.SupervisorID,
		nj.EstimatedTime, nj.Instructions,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503":
				return Job{}, apperr.Validation("unknown supervisor").WithOp(opInsertOnRoute)
			case "23505":
				return Job{}, apperr.Conflict("stop order already taken, retry").WithOp(opInsertOnRoute)
			}
		}
		return Job{}, fmt.Errorf("failed to insert job: %w", err)
	}

	j, err := getByID(ctx, tx, id)
	if err != nil {
		return Job{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Job{}, fmt.Errorf("failed to commit job insert: %w", err)
	}
	return j, nil
}

// MoveToRoute appends an existing job to another route and hands it to that
// route's technician. It returns the job before and after the move.
func (r *Repository) MoveToRoute(ctx context.Context, p MoveParams) (Job, Job, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Job{}, Job{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lr, err := lockRoute(ctx, tx, p.TargetRouteID, p.AllowPublished)
	if err != nil {
		return Job{}, Job{}, err
	}

	before, err := scanJob(tx.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM jobs j JOIN routes r ON r.id = j.route_id
		WHERE j.id = $1
		FOR UPDATE OF j
	`, p.JobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, Job{}, apperr.NotFound(jobNotFoundMsg).WithOp(opMoveToRoute)
		}
		return Job{}, Job{}, fmt.Errorf("failed to lock job: %w", err)
	}
	if before.Status != p.ExpectedStatus {
		return Job{}, Job{}, apperr.InvalidState(fmt.Sprintf("job is %s, expected %s", before.Status, p.ExpectedStatus)).
			WithDetails(map[string]string{"status": before.Status})
	}
	if before.RouteID == p.TargetRouteID {
		return Job{}, Job{}, apperr.InvalidState("job is already on this route")
	}
	if p.RequireNoPhotos {
		counts, err := countPhotos(ctx, tx, p.JobID)
		if err != nil {
			return Job{}, Job{}, err
		}
		if counts.Total() > 0 {
			return Job{}, Job{}, apperr.InvalidState("job already has photos and cannot be moved as a stop")
		}
	}

	order, err := nextRouteOrder(ctx, tx, p.TargetRouteID)
	if err != nil {
		return Job{}, Job{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE jobs SET
			route_id = $2,
			route_order = $3,
			technician_id = $4,
			supervisor_id = COALESCE($5, supervisor_id),
			status = CASE WHEN $6 THEN 'scheduled' ELSE status END,
			started_at = CASE WHEN $6 THEN NULL ELSE started_at END,
			updated_at = now()
		WHERE id = $1
	`, p.JobID, p.TargetRouteID, order, lr.technicianID, p.SupervisorID, p.ResetStatus)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Job{}, Job{}, apperr.Validation("unknown supervisor").WithOp(opMoveToRoute)
		}
		return Job{}, Job{}, fmt.Errorf("failed to move job: %w", err)
	}

	after, err := getByID(ctx, tx, p.JobID)
	if err != nil {
		return Job{}, Job{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Job{}, Job{}, fmt.Errorf("failed to commit job move: %w", err)
	}
	return before, after, nil
}
