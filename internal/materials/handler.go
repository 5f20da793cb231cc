package materials

import (
	"net/http"

	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/platform/httpkit"
	"hvac_dispatch_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest    = "invalid request"
	msgValidationFailed  = "validation failed"
	msgInvalidJobID      = "invalid job id"
	msgInvalidMaterialID = "invalid material id"
)

// MaterialInput is one line of AddMaterialsRequest.
type MaterialInput struct {
	Name     string `json:"name" validate:"required,max=200"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=10000"`
}

// AddMaterialsRequest is the body of POST /jobs/:id/materials
type AddMaterialsRequest struct {
	Items []MaterialInput `json:"items" validate:"required,min=1,max=100,dive"`
}

// UpdateMaterialRequest is the body of PATCH /materials/:id
type UpdateMaterialRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=200"`
	Quantity *int    `json:"quantity" validate:"omitempty,min=1,max=10000"`
	Checked  *bool   `json:"checked"`
}

// Handler exposes job checklists.
type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func pathActor(c *gin.Context, invalidMsg string) (access.Actor, uuid.UUID, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return access.Actor{}, uuid.Nil, false
	}
	parsed, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, invalidMsg, nil)
		return access.Actor{}, uuid.Nil, false
	}
	return access.FromIdentity(id), parsed, true
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

// List handles GET /api/v1/jobs/:id/materials
func (h *Handler) List(c *gin.Context) {
	actor, jobID, ok := pathActor(c, msgInvalidJobID)
	if !ok {
		return
	}
	items, err := h.svc.List(c.Request.Context(), actor, jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

// Add handles POST /api/v1/jobs/:id/materials
func (h *Handler) Add(c *gin.Context) {
	actor, jobID, ok := pathActor(c, msgInvalidJobID)
	if !ok {
		return
	}
	var req AddMaterialsRequest
	if !h.bind(c, &req) {
		return
	}
	items, err := h.svc.Add(c.Request.Context(), actor, jobID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, gin.H{"items": items})
}

// Update handles PATCH /api/v1/materials/:id
func (h *Handler) Update(c *gin.Context) {
	actor, materialID, ok := pathActor(c, msgInvalidMaterialID)
	if !ok {
		return
	}
	var req UpdateMaterialRequest
	if !h.bind(c, &req) {
		return
	}
	m, err := h.svc.Update(c.Request.Context(), actor, materialID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, m)
}

// Delete handles DELETE /api/v1/materials/:id
func (h *Handler) Delete(c *gin.Context) {
	actor, materialID, ok := pathActor(c, msgInvalidMaterialID)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), actor, materialID)) {
		return
	}
	httpkit.NoContent(c)
}
