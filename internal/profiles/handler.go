package profiles

import (
	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler exposes the staff directory to the operations console.
type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListTechnicians handles GET /api/v1/ops/technicians
func (h *Handler) ListTechnicians(c *gin.Context) {
	items, err := h.repo.ListActiveByRoles(c.Request.Context(), []string{access.RoleTechnician})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

// ListSupervisors handles GET /api/v1/ops/supervisors
func (h *Handler) ListSupervisors(c *gin.Context) {
	items, err := h.repo.ListActiveByRoles(c.Request.Context(), []string{access.RoleSupervisor})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

// Me handles GET /api/v1/me
func (h *Handler) Me(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	profile, err := h.repo.GetByID(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, profile)
}
