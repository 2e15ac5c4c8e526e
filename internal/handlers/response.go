package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/middleware"
	"github.com/tripnest/booking-core/internal/models"
)

// respondError maps a service error to its HTTP status.
// Unexpected errors are logged and hidden behind a generic message.
func respondError(c *gin.Context, logger *logrus.Logger, operation string, err error) {
	var status int
	switch models.KindOf(err) {
	case models.ErrorKindValidation, models.ErrorKindConflict, models.ErrorKindState:
		status = http.StatusBadRequest
	case models.ErrorKindAuthorization:
		status = http.StatusForbidden
	case models.ErrorKindNotFound:
		status = http.StatusNotFound
	default:
		logger.WithFields(logrus.Fields{
			"operation": operation,
			"path":      c.Request.URL.Path,
		}).WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Something went wrong. Please try again later.",
		})
		return
	}

	var appErr *models.AppError
	errors.As(err, &appErr)
	c.JSON(status, gin.H{
		"error":   string(appErr.Kind),
		"message": appErr.Message,
	})
}

// requirePrincipal reads the authenticated principal or writes 401
func requirePrincipal(c *gin.Context) (models.Principal, bool) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "user not authenticated",
		})
		return models.Principal{}, false
	}
	return principal, true
}

// uuidParam parses a path parameter or writes 400
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(models.ErrorKindValidation),
			"message": "invalid " + name,
		})
		return uuid.Nil, false
	}
	return id, true
}

// badRequest writes a validation error for malformed input
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   string(models.ErrorKindValidation),
		"message": message,
	})
}
