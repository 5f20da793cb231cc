package handler

import (
	"net/http"

	"hvac_dispatch_backend/internal/jobs/service"
	"hvac_dispatch_backend/internal/jobs/transport"
	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/platform/httpkit"
	"hvac_dispatch_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidJobID     = "invalid job id"
)

// Handler handles HTTP requests for jobs
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new jobs handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the routes every authenticated role can reach.
// Ownership is enforced by the service.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/start", h.Start)
	rg.POST("/:id/complete", h.Complete)
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/send-report", h.SendReport)
}

// RegisterOperationsRoutes registers the dispatcher-only job routes.
func (h *Handler) RegisterOperationsRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/reassign", h.Reassign)
}

// RegisterCheckRoutes registers the on-demand monitor checks.
func (h *Handler) RegisterCheckRoutes(rg *gin.RouterGroup) {
	rg.POST("/overdue", h.RunOverdueCheck)
	rg.POST("/running-late", h.RunRunningLateCheck)
}

// actorAndJob resolves the caller and the :id path parameter, writing the
// error response itself when either is missing.
func actorAndJob(c *gin.Context) (access.Actor, uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return access.Actor{}, uuid.Nil, false
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return access.Actor{}, uuid.Nil, false
	}
	return access.FromIdentity(identity), jobID, true
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

// List handles GET /api/v1/jobs
func (h *Handler) List(c *gin.Context) {
	var req transport.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := h.svc.List(c.Request.Context(), access.FromIdentity(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

// Get handles GET /api/v1/jobs/:id
func (h *Handler) Get(c *gin.Context) {
	actor, jobID, ok := actorAndJob(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), actor, jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Start handles POST /api/v1/jobs/:id/start
func (h *Handler) Start(c *gin.Context) {
	actor, jobID, ok := actorAndJob(c)
	if !ok {
		return
	}

	result, err := h.svc.Start(c.Request.Context(), actor, jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Complete handles POST /api/v1/jobs/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	actor, jobID, ok := actorAndJob(c)
	if !ok {
		return
	}

	result, err := h.svc.Complete(c.Request.Context(), actor, jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Approve handles POST /api/v1/jobs/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	actor, jobID, ok := actorAndJob(c)
	if !ok {
		return
	}

	var req transport.ApproveJobRequest
	if c.Request.ContentLength > 0 && !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Approve(c.Request.Context(), actor, jobID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Reject handles POST /api/v1/jobs/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	actor, jobID, ok := actorAndJob(c)
	if !ok {
		return
	}

	var req transport.ReasonRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Reject(c.Request.Context(), actor, jobID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SendReport handles POST /api/v1/jobs/:id/send-report
func (h *Handler) SendReport(c *gin.Context) {
	actor, jobID, ok := actorAndJob(c)
	if !ok {
		return
	}

	result, err := h.svc.SendReport(c.Request.Context(), actor, jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create handles POST /api/v1/ops/jobs
func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.CreateJobRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), access.FromIdentity(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Update handles PATCH /api/v1/ops/jobs/:id
func (h *Handler) Update(c *gin.Context) {
	actor, jobID, ok := actorAndJob(c)
	if !ok {
		return
	}

	var req transport.UpdateJobRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Update(c.Request.Context(), actor, jobID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete handles DELETE /api/v1/ops/jobs/:id
func (h *Handler) Delete(c *gin.Context) {
	actor, jobID, ok := actorAndJob(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), actor, jobID)) {
		return
	}
	httpkit.NoContent(c)
}

// Cancel handles POST /api/v1/ops/jobs/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	actor, jobID, ok := actorAndJob(c)
	if !ok {
		return
	}

	var req transport.ReasonRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), actor, jobID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Reassign handles POST /api/v1/ops/jobs/:id/reassign
func (h *Handler) Reassign(c *gin.Context) {
	actor, jobID, ok := actorAndJob(c)
	if !ok {
		return
	}

	var req transport.ReassignJobRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Reassign(c.Request.Context(), actor, jobID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RunOverdueCheck handles POST /api/v1/ops/checks/overdue
func (h *Handler) RunOverdueCheck(c *gin.Context) {
	result, err := h.svc.CheckOverdue(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RunRunningLateCheck handles POST /api/v1/ops/checks/running-late
func (h *Handler) RunRunningLateCheck(c *gin.Context) {
	result, err := h.svc.CheckRunningLate(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Metrics handles GET /api/v1/supervisor/metrics
func (h *Handler) Metrics(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := h.svc.SupervisorMetrics(c.Request.Context(), access.FromIdentity(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}
