// Package photos provides the photo evidence module: uploads from the field,
// offline-safe record creation and the per-photo supervisor review.
package photos

import (
	"hvac_dispatch_backend/internal/adapters/storage"
	"hvac_dispatch_backend/internal/events"
	apphttp "hvac_dispatch_backend/internal/http"
	"hvac_dispatch_backend/internal/photos/handler"
	"hvac_dispatch_backend/internal/photos/repository"
	"hvac_dispatch_backend/internal/photos/service"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/logger"
	"hvac_dispatch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the collaborators owned by other modules.
type Deps struct {
	Jobs     service.JobReader
	Store    storage.PhotoStore
	Activity service.ActivityRecorder
	Notifier notices.Notifier
	Bus      events.Bus
}

// Module represents the photos domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new photos module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator, deps Deps, log *logger.Logger) *Module {
	svc := service.New(service.Deps{
		Repo:     repository.New(pool),
		Jobs:     deps.Jobs,
		Store:    deps.Store,
		Activity: deps.Activity,
		Notifier: deps.Notifier,
		Bus:      deps.Bus,
		Log:      log,
	})
	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "photos"
}

// RegisterRoutes registers the module's routes under /api/v1
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterJobRoutes(ctx.Protected.Group("/jobs"))
	m.handler.RegisterRoutes(ctx.Protected.Group("/photos"))
}

var _ apphttp.Module = (*Module)(nil)
