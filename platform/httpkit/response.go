// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"
	"sync/atomic"

	"hvac_dispatch_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

const msgInternalError = "internal server error"

var exposeInternalErrors atomic.Bool

// ExposeInternalErrors controls whether internal error text reaches clients.
// Only development enables it.
func ExposeInternalErrors(enabled bool) {
	exposeInternalErrors.Store(enabled)
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Kind    string      `json:"kind"`
	Details interface{} `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Kind: kindForStatus(status), Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// NoContent sends an empty 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// HandleError maps domain errors to HTTP responses.
// Typed *apperr.Error values use their Kind; anything else is a 500 whose
// text is hidden unless internal errors are exposed.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	_ = c.Error(err)

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		message := domainErr.Message
		if domainErr.Kind == apperr.KindInternal && !exposeInternalErrors.Load() {
			message = msgInternalError
		}
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   message,
			Kind:    domainErr.Kind.String(),
			Details: domainErr.Details,
		})
		return true
	}

	message := msgInternalError
	if exposeInternalErrors.Load() {
		message = err.Error()
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: message, Kind: apperr.KindInternal.String()})
	return true
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return apperr.KindNotFound.String()
	case http.StatusForbidden:
		return apperr.KindForbidden.String()
	case http.StatusUnauthorized:
		return apperr.KindUnauthorized.String()
	case http.StatusConflict:
		return apperr.KindConflict.String()
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusInternalServerError:
		return apperr.KindInternal.String()
	default:
		return apperr.KindBadRequest.String()
	}
}
