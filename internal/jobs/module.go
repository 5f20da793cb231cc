// Package jobs provides the job state machine module: lifecycle
// transitions, dispatch management and the scheduled job checks.
package jobs

import (
	"hvac_dispatch_backend/internal/email"
	"hvac_dispatch_backend/internal/events"
	apphttp "hvac_dispatch_backend/internal/http"
	"hvac_dispatch_backend/internal/jobs/handler"
	"hvac_dispatch_backend/internal/jobs/repository"
	"hvac_dispatch_backend/internal/jobs/service"
	"hvac_dispatch_backend/internal/shared/notices"
	"hvac_dispatch_backend/platform/config"
	"hvac_dispatch_backend/platform/logger"
	"hvac_dispatch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the configuration the jobs module reads.
type Config interface {
	config.ReportConfig
	config.PhoneConfig
}

// Deps are the collaborators owned by other modules.
type Deps struct {
	Activity  service.ActivityRecorder
	Notifier  notices.Notifier
	Directory service.Directory
	Sender    email.Sender
	Bus       events.Bus
}

// Module represents the jobs domain module
type Module struct {
	handler *handler.Handler
	repo    *repository.Repository
	Service *service.Service
}

// NewModule creates a new jobs module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator, cfg Config, deps Deps, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(service.Deps{
		Repo:        repo,
		Activity:    deps.Activity,
		Notifier:    deps.Notifier,
		Directory:   deps.Directory,
		Sender:      deps.Sender,
		Bus:         deps.Bus,
		ReportCfg:   cfg,
		PhoneRegion: cfg.GetPhoneDefaultRegion(),
		Log:         log,
	})

	return &Module{
		handler: handler.New(svc, val),
		repo:    repo,
		Service: svc,
	}
}

// Repository exposes the job store to adapters of other modules.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "jobs"
}

// RegisterRoutes registers the module's routes under /api/v1
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/jobs"))
	m.handler.RegisterOperationsRoutes(ctx.Operations.Group("/jobs"))
	m.handler.RegisterCheckRoutes(ctx.Operations.Group("/checks"))

	supervisor := ctx.Protected.Group("/supervisor")
	supervisor.GET("/metrics", m.handler.Metrics)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
