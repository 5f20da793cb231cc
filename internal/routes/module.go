// Package routes provides the route planner module.
package routes

import (
	"hvac_dispatch_backend/internal/events"
	apphttp "hvac_dispatch_backend/internal/http"
	"hvac_dispatch_backend/internal/routes/handler"
	"hvac_dispatch_backend/internal/routes/repository"
	"hvac_dispatch_backend/internal/routes/service"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/logger"
	"hvac_dispatch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the routes domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new routes module with all dependencies wired
func NewModule(pool *pgxpool.Pool, jobs service.JobPlacer, notifier notices.Notifier, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), jobs, notifier, bus, log)
	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "routes"
}

// RegisterRoutes registers the module's routes under /api/v1
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/routes"))
	m.handler.RegisterOperationsRoutes(ctx.Operations.Group("/routes"))
}

var _ apphttp.Module = (*Module)(nil)
