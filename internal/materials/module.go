package materials

import (
	apphttp "hvac_dispatch_backend/internal/http"
	"hvac_dispatch_backend/platform/logger"
	"hvac_dispatch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the job checklist routes.
type Module struct {
	handler *Handler
	Service *Service
}

func NewModule(pool *pgxpool.Pool, jobs JobReader, val *validator.Validator, log *logger.Logger) *Module {
	svc := NewService(NewRepository(pool), jobs, log)
	return &Module{handler: NewHandler(svc, val), Service: svc}
}

func (m *Module) Name() string {
	return "materials"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	jobs := ctx.Protected.Group("/jobs")
	jobs.GET("/:id/materials", m.handler.List)
	jobs.POST("/:id/materials", m.handler.Add)

	materials := ctx.Protected.Group("/materials")
	materials.PATCH("/:id", m.handler.Update)
	materials.DELETE("/:id", m.handler.Delete)
}

var _ apphttp.Module = (*Module)(nil)
