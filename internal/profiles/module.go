package profiles

import (
	apphttp "hvac_dispatch_backend/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the staff directory routes.
type Module struct {
	repo    *Repository
	handler *Handler
}

func NewModule(pool *pgxpool.Pool) *Module {
	repo := NewRepository(pool)
	return &Module{repo: repo, handler: NewHandler(repo)}
}

// Repository exposes the profile reader to other modules through adapters.
func (m *Module) Repository() *Repository {
	return m.repo
}

func (m *Module) Name() string {
	return "profiles"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/me", m.handler.Me)
	ctx.Operations.GET("/technicians", m.handler.ListTechnicians)
	ctx.Operations.GET("/supervisors", m.handler.ListSupervisors)
}

var _ apphttp.Module = (*Module)(nil)
