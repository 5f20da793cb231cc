package maps

import (
	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/httpkit"
	"hvac_dispatch_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler exposes the address lookup endpoint.
type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// LookupAddress handles GET /api/v1/ops/addresses/lookup?q=...
func (h *Handler) LookupAddress(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.HandleError(c, apperr.Validation("query 'q' is required"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation("query 'q' must be 3 to 200 characters"))
		return
	}

	results, err := h.svc.SearchAddress(c.Request.Context(), req.Query)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, results)
}
