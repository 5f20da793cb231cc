// Package maps provides address lookup for operations staff creating jobs.
package maps

import (
	apphttp "hvac_dispatch_backend/internal/http"
	"hvac_dispatch_backend/platform/logger"
	"hvac_dispatch_backend/platform/validator"
)

// Module wires the address lookup HTTP routes.
type Module struct {
	handler *Handler
}

func NewModule(cfg Config, val *validator.Validator, log *logger.Logger) *Module {
	svc := NewService(cfg, log)
	return &Module{handler: NewHandler(svc, val)}
}

func (m *Module) Name() string {
	return "maps"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Operations.Group("/addresses")
	group.GET("/lookup", m.handler.LookupAddress)
}

var _ apphttp.Module = (*Module)(nil)
