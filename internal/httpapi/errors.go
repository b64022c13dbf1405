package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"imageAnnotation/internal/auth"
	"imageAnnotation/repository"
)

// Error bodies use "message", which is what the web client reads.
func abortMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

// errorStatus maps service errors onto an HTTP status and client message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrTokenMissing):
		return http.StatusUnauthorized, "Token is missing"
	case errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusUnauthorized, "Token is invalid"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, auth.ErrForbidden), errors.Is(err, repository.ErrUnknownBatch):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, repository.ErrForbiddenPath):
		return http.StatusForbidden, "Forbidden path"
	case errors.Is(err, repository.ErrValidation):
		return http.StatusBadRequest, "Missing required fields"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "Image not found"
	case errors.Is(err, repository.ErrStorageCorrupt):
		return http.StatusInternalServerError, "Label storage is corrupt"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// fail writes the mapped error response; server-side failures are logged.
func fail(c *gin.Context, logger *slog.Logger, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), "request failed",
			"request_id", c.GetString(requestIDKey), "path", c.Request.URL.Path, "error", err)
	}
	abortMessage(c, status, msg)
}
