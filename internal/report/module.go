package report

import (
	apphttp "hvac_dispatch_backend/internal/http"
	"hvac_dispatch_backend/platform/logger"
)

// Module serves the public report page.
type Module struct {
	handler *Handler
	Service *Service
}

func NewModule(jobs JobSource, photos PhotoSource, names NameResolver, cfg Config, log *logger.Logger) *Module {
	svc := NewService(jobs, photos, names, cfg, log)
	return &Module{handler: NewHandler(svc, log), Service: svc}
}

func (m *Module) Name() string {
	return "report"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Public.GET("/reports/:token", m.handler.Show)
}

var _ apphttp.Module = (*Module)(nil)
