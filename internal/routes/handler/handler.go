package handler

import (
	"net/http"

	"hvac_dispatch_backend/internal/routes/service"
	"hvac_dispatch_backend/internal/routes/transport"
	"hvac_dispatch_backend/internal/shared/access"
	"hvac_dispatch_backend/platform/httpkit"
	"hvac_dispatch_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidRouteID   = "invalid route id"
)

// Handler handles HTTP requests for routes
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new routes handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the routes a technician can reach.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/mine", h.Mine)
	rg.GET("/:id", h.Get)
}

// RegisterOperationsRoutes registers the dispatcher planning routes.
func (h *Handler) RegisterOperationsRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.UpdateNotes)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/stops", h.AddStop)
	rg.PUT("/:id/order", h.Reorder)
	rg.POST("/:id/publish", h.Publish)
}

func actorAndRoute(c *gin.Context) (access.Actor, uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return access.Actor{}, uuid.Nil, false
	}
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRouteID, nil)
		return access.Actor{}, uuid.Nil, false
	}
	return access.FromIdentity(identity), routeID, true
}

func (h *Handler) validate(c *gin.Context, req any) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return false
	}
	return h.validate(c, req)
}

// List handles GET /api/v1/ops/routes?date=YYYY-MM-DD
func (h *Handler) List(c *gin.Context) {
	var req transport.ListRoutesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if !h.validate(c, req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := h.svc.ListForDate(c.Request.Context(), access.FromIdentity(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

// Create handles POST /api/v1/ops/routes
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateRouteRequest
	if !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), access.FromIdentity(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Get handles GET /api/v1/routes/:id
func (h *Handler) Get(c *gin.Context) {
	actor, routeID, ok := actorAndRoute(c)
	if !ok {
		return
	}
	result, err := h.svc.Get(c.Request.Context(), actor, routeID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Mine handles GET /api/v1/routes/mine
func (h *Handler) Mine(c *gin.Context) {
	var req transport.MyRouteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if !h.validate(c, req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Mine(c.Request.Context(), access.FromIdentity(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateNotes handles PATCH /api/v1/ops/routes/:id
func (h *Handler) UpdateNotes(c *gin.Context) {
	actor, routeID, ok := actorAndRoute(c)
	if !ok {
		return
	}
	var req transport.UpdateNotesRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.UpdateNotes(c.Request.Context(), actor, routeID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete handles DELETE /api/v1/ops/routes/:id
func (h *Handler) Delete(c *gin.Context) {
	actor, routeID, ok := actorAndRoute(c)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), actor, routeID)) {
		return
	}
	httpkit.NoContent(c)
}

// AddStop handles POST /api/v1/ops/routes/:id/stops
func (h *Handler) AddStop(c *gin.Context) {
	actor, routeID, ok := actorAndRoute(c)
	if !ok {
		return
	}
	var req transport.AddStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if req.Job != nil {
		req.Job.RouteID = routeID
	}
	if !h.validate(c, req) {
		return
	}

	result, err := h.svc.AddStop(c.Request.Context(), actor, routeID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Reorder handles PUT /api/v1/ops/routes/:id/order
func (h *Handler) Reorder(c *gin.Context) {
	actor, routeID, ok := actorAndRoute(c)
	if !ok {
		return
	}
	var req transport.ReorderRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.Reorder(c.Request.Context(), actor, routeID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Publish handles POST /api/v1/ops/routes/:id/publish
func (h *Handler) Publish(c *gin.Context) {
	actor, routeID, ok := actorAndRoute(c)
	if !ok {
		return
	}
	result, err := h.svc.Publish(c.Request.Context(), actor, routeID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
