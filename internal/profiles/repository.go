// Package profiles reads the user directory the dispatch workflow routes
// work and notifications through. Accounts themselves are managed elsewhere.
package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opGetByID         = "profiles.repository.get_by_id"
	opListByRoles     = "profiles.repository.list_by_roles"
	opListSupervised  = "profiles.repository.list_supervised"
	opGetPreferences  = "profiles.repository.get_preferences"
	opSetPreferences  = "profiles.repository.set_preferences"
	errProfileMissing = "profile not found"
)

// Profile is a user of the dispatch system.
type Profile struct {
	ID           uuid.UUID  `json:"id"`
	FullName     string     `json:"fullName"`
	Email        string     `json:"email"`
	Phone        *string    `json:"phone,omitempty"`
	Role         string     `json:"role"`
	Zone         *string    `json:"zone,omitempty"`
	SupervisorID *uuid.UUID `json:"supervisorId,omitempty"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Repository reads profiles from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a profiles repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const profileColumns = `id, full_name, email, phone, role, zone, supervisor_id, is_active, created_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.Role, &p.Zone, &p.SupervisorID, &p.IsActive, &p.CreatedAt)
	return p, err
}

// GetByID returns a profile by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, apperr.NotFound(errProfileMissing).WithOp(opGetByID)
		}
		return Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// ListActiveByRoles returns active profiles holding any of roles, ordered by name.
func (r *Repository) ListActiveByRoles(ctx context.Context, roles []string) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE is_active = true AND role = ANY($1)
		ORDER BY full_name
	`, roles)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list profiles failed: %v", err)).WithOp(opListByRoles)
	}
	defer rows.Close()
	return collectProfiles(rows, opListByRoles)
}

// ListTechniciansBySupervisor returns the active technicians reporting to supervisorID.
func (r *Repository) ListTechniciansBySupervisor(ctx context.Context, supervisorID uuid.UUID) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE is_active = true AND role = 'technician' AND supervisor_id = $1
		ORDER BY full_name
	`, supervisorID)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list supervised technicians failed: %v", err)).WithOp(opListSupervised)
	}
	defer rows.Close()
	return collectProfiles(rows, opListSupervised)
}

func collectProfiles(rows pgx.Rows, op string) ([]Profile, error) {
	items := make([]Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan profile failed: %v", err)).WithOp(op)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate profiles failed: %v", err)).WithOp(op)
	}
	return items, nil
}

// GetPreferences returns the sparse notification preference map of a user.
func (r *Repository) GetPreferences(ctx context.Context, userID uuid.UUID) (notices.Preferences, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT notification_preferences FROM profiles WHERE id = $1`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(errProfileMissing).WithOp(opGetPreferences)
		}
		return nil, fmt.Errorf("failed to get notification preferences: %w", err)
	}

	prefs := notices.Preferences{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &prefs); err != nil {
			return nil, fmt.Errorf("failed to decode notification preferences: %w", err)
		}
	}
	return prefs, nil
}

// SetPreferences replaces the notification preference map of a user.
func (r *Repository) SetPreferences(ctx context.Context, userID uuid.UUID, prefs notices.Preferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode notification preferences: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles SET notification_preferences = $2, updated_at = now()
		WHERE id = $1
	`, userID, raw)
	if err != nil {
		return fmt.Errorf("failed to update notification preferences: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(errProfileMissing).WithOp(opSetPreferences)
	}
	return nil
}
