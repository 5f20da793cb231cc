// Package materials keeps the checklist of parts and supplies of each job.
package materials

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
	opAdd    = "materials.repository.add"
	opGet    = "materials.repository.get"
	opUpdate = "materials.repository.update"

	materialNotFoundMsg = "material not found"
)

// Material is one checklist line of a job.
type Material struct {
	ID        uuid.UUID `json:"id"`
	JobID     uuid.UUID `json:"jobId"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Checked   bool      `json:"checked"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewMaterial is one line of AddMany.
type NewMaterial struct {
	Name     string
	Quantity int
}

// Changes is a partial update. Nil fields stay unchanged.
type Changes struct {
	Name     *string
	Quantity *int
	Checked  *bool
}

// Repository persists materials.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a materials repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const materialColumns = `id, job_id, name, quantity, checked, created_at, updated_at`

func scanMaterial(row pgx.Row) (Material, error) {
	var m Material
	err := row.Scan(&m.ID, &m.JobID, &m.Name, &m.Quantity, &m.Checked, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// AddMany inserts all lines or none.
func (r *Repository) AddMany(ctx context.Context, jobID uuid.UUID, items []NewMaterial) ([]Material, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
			INSERT INTO materials (job_id, name, quantity)
			VALUES ($1, $2, $3)
			RETURNING `+materialColumns, jobID, item.Name, item.Quantity)
	}
	results := tx.SendBatch(ctx, batch)
	out := make([]Material, 0, len(items))
	for range items {
		m, err := scanMaterial(results.QueryRow())
		if err != nil {
			_ = results.Close()
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return nil, apperr.NotFound("job not found").WithOp(opAdd)
			}
			return nil, fmt.Errorf("failed to add material: %w", err)
		}
		out = append(out, m)
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("failed to add materials: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit materials: %w", err)
	}
	return out, nil
}

// GetByID returns a material by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Material, error) {
	m, err := scanMaterial(r.pool.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Material{}, apperr.NotFound(materialNotFoundMsg).WithOp(opGet)
		}
		return Material{}, fmt.Errorf("failed to get material: %w", err)
	}
	return m, nil
}

// ListByJob returns the checklist of a job in creation order.
func (r *Repository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]Material, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+materialColumns+`
		FROM materials
		WHERE job_id = $1
		ORDER BY created_at, id
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	defer rows.Close()

	items := make([]Material, 0)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate materials: %w", err)
	}
	return items, nil
}

// Update applies the non-nil changes.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, ch Changes) (Material, error) {
	m, err := scanMaterial(r.pool.QueryRow(ctx, `
		UPDATE materials SET
			name = COALESCE($2, name),
			quantity = COALESCE($3, quantity),
			checked = COALESCE($4, checked),
			updated_at = now()
		WHERE id = $1
		RETURNING `+materialColumns, id, ch.Name, ch.Quantity, ch.Checked))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Material{}, apperr.NotFound(materialNotFoundMsg).WithOp(opUpdate)
		}
		return Material{}, fmt.Errorf("failed to update material: %w", err)
	}
	return m, nil
}

// Delete removes a material.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(materialNotFoundMsg)
	}
	return nil
}
