package activity

import (
	apphttp "hvac_dispatch_backend/internal/http"
	"hvac_dispatch_backend/platform/logger"
	"hvac_dispatch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the job audit trail routes.
type Module struct {
	handler *Handler
	Service *Service
}

func NewModule(pool *pgxpool.Pool, jobs JobParticipants, val *validator.Validator, log *logger.Logger) *Module {
	svc := NewService(NewRepository(pool), jobs, log)
	return &Module{handler: NewHandler(svc, val), Service: svc}
}

func (m *Module) Name() string {
	return "activity"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	jobs := ctx.Protected.Group("/jobs")
	jobs.GET("/:id/activity", m.handler.List)
	jobs.POST("/:id/notes", m.handler.AddNote)
}

var _ apphttp.Module = (*Module)(nil)
