package report

import (
	"net/http"

	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const contentTypeHTML = "text/html; charset=utf-8"

var (
	notFoundPage = unavailableData{
		Title:   "Reporte no encontrado",
		Heading: "Reporte no encontrado",
		Message: "El enlace que utilizó no corresponde a ningún reporte. Verifique la dirección o contacte a su proveedor de servicio.",
	}
	expiredPage = unavailableData{
		Title:   "Enlace vencido",
		Heading: "Este enlace ha vencido",
		Message: "El reporte ya no está disponible en este enlace. Solicite a su proveedor de servicio un nuevo envío.",
	}
	errorPage = unavailableData{
		Title:   "Reporte no disponible",
		Heading: "No pudimos cargar el reporte",
		Message: "Ocurrió un problema al preparar el reporte. Intente de nuevo en unos minutos.",
	}
)

type Handler struct {
	svc *Service
	log *logger.Logger
}

func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Show handles GET /api/reports/:token
func (h *Handler) Show(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Referrer-Policy", "no-referrer")

	view, err := h.svc.View(c.Request.Context(), c.Param("token"))
	if err != nil {
		switch {
		case apperr.Is(err, apperr.KindNotFound):
			h.unavailable(c, http.StatusNotFound, notFoundPage)
		case apperr.Is(err, apperr.KindGone):
			h.unavailable(c, http.StatusGone, expiredPage)
		default:
			h.log.Error("failed to build report view", "error", err)
			h.unavailable(c, http.StatusInternalServerError, errorPage)
		}
		return
	}

	body, err := renderReport(view)
	if err != nil {
		h.log.Error("failed to render report", "error", err)
		h.unavailable(c, http.StatusInternalServerError, errorPage)
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, body)
}

func (h *Handler) unavailable(c *gin.Context, status int, page unavailableData) {
	body, err := renderUnavailable(page)
	if err != nil {
		h.log.Error("failed to render unavailable page", "error", err)
		c.String(status, page.Message)
		return
	}
	c.Data(status, contentTypeHTML, body)
}
