package adapters

import (
	"context"
	"strings"

	"hvac_dispatch_backend/internal/profiles"
	"hvac_dispatch_backend/internal/shared/access"

	"github.com/google/uuid"
)

// ProfileReader is the narrow view of the profiles repository.
type ProfileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (profiles.Profile, error)
	ListActiveByRoles(ctx context.Context, roles []string) ([]profiles.Profile, error)
}

// Directory implements jobs/service.Directory and report.NameResolver.
type Directory struct {
	profiles ProfileReader
}

func NewDirectory(profiles ProfileReader) *Directory {
	return &Directory{profiles: profiles}
}

func (d *Directory) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	p, err := d.profiles.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if name := strings.TrimSpace(p.FullName); name != "" {
		return name, nil
	}
	return p.Email, nil
}

// DispatcherIDs returns every active operations or admin user.
func (d *Directory) DispatcherIDs(ctx context.Context) ([]uuid.UUID, error) {
	list, err := d.profiles.ListActiveByRoles(ctx, access.DispatcherRoles())
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	return ids, nil
}
