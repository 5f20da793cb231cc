package handler

import (
	"net/http"

	"hvac_dispatch_backend/internal/photos/service"
	"hvac_dispatch_backend/internal/photos/transport"
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
	msgInvalidPhotoID   = "invalid photo id"
	msgMissingFile      = "file is required"

	maxMultipartMemory = 32 << 20
)

// Handler handles HTTP requests for photo evidence.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new photos handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterJobRoutes registers the photo routes nested under a job.
func (h *Handler) RegisterJobRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/photos", h.List)
	rg.POST("/:id/photos", h.Upload)
	rg.POST("/:id/photos/presign", h.Presign)
	rg.POST("/:id/photos/record", h.CreateRecord)
}

// RegisterRoutes registers the per-photo review routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/reject", h.Reject)
}

func pathActor(c *gin.Context, invalidMsg string) (access.Actor, uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return access.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, invalidMsg, nil)
		return access.Actor{}, uuid.Nil, false
	}
	return access.FromIdentity(identity), id, true
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

// List handles GET /api/v1/jobs/:id/photos
func (h *Handler) List(c *gin.Context) {
	actor, jobID, ok := pathActor(c, msgInvalidJobID)
	if !ok {
		return
	}
	items, err := h.svc.ListForJob(c.Request.Context(), actor, jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

// Upload handles POST /api/v1/jobs/:id/photos (multipart/form-data)
func (h *Handler) Upload(c *gin.Context) {
	actor, jobID, ok := pathActor(c, msgInvalidJobID)
	if !ok {
		return
	}
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "unable to parse multipart form")
		return
	}

	var form transport.UploadPhotoForm
	if err := c.ShouldBind(&form); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(form); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgMissingFile, nil)
		return
	}
	file, err := fh.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "unable to read file")
		return
	}
	defer file.Close()

	in := service.UploadInput{
		File:        file,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Description: form.Description,
		ClientRef:   form.ClientRef,
		Latitude:    form.Latitude,
		Longitude:   form.Longitude,
	}
	if form.ReplacesID != "" {
		replaces := uuid.MustParse(form.ReplacesID)
		in.ReplacesID = &replaces
	}

	result, err := h.svc.Upload(c.Request.Context(), actor, jobID, in)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Presign handles POST /api/v1/jobs/:id/photos/presign
func (h *Handler) Presign(c *gin.Context) {
	actor, jobID, ok := pathActor(c, msgInvalidJobID)
	if !ok {
		return
	}
	var req transport.PresignUploadRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.PresignUpload(c.Request.Context(), actor, jobID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateRecord handles POST /api/v1/jobs/:id/photos/record
func (h *Handler) CreateRecord(c *gin.Context) {
	actor, jobID, ok := pathActor(c, msgInvalidJobID)
	if !ok {
		return
	}
	var req transport.CreatePhotoRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.CreateRecord(c.Request.Context(), actor, jobID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Approve handles POST /api/v1/photos/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	actor, photoID, ok := pathActor(c, msgInvalidPhotoID)
	if !ok {
		return
	}
	result, err := h.svc.Approve(c.Request.Context(), actor, photoID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Reject handles POST /api/v1/photos/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	actor, photoID, ok := pathActor(c, msgInvalidPhotoID)
	if !ok {
		return
	}
	var req transport.RejectPhotoRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.Reject(c.Request.Context(), actor, photoID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
