package handlers

import (
	"errors"
	"net/http"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/repositories"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []models.FieldError `json:"fields,omitempty"`
}

// handleTaskError maps the error kinds of the task layer onto HTTP statuses.
// Anything that is not the client's fault is logged and answered with a
// generic body.
func handleTaskError(c *gin.Context, logger log.FieldLogger, err error) {
	var (
		validationErr *models.ValidationError
		enumErr       *models.ParseEnumError
		decodeErr     *repositories.DecodeError
		storageErr    *repositories.StorageError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: validationErr.Fields})
	case errors.As(err, &enumErr):
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:  "validation failed",
			Fields: []models.FieldError{{Field: enumErr.Field, Message: enumErr.Error()}},
		})
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "task not found"})
	case errors.As(err, &decodeErr):
		logger.WithFields(log.Fields{
			"field": decodeErr.Field,
			"value": decodeErr.Value,
		}).WithError(err).Error("stored task could not be decoded")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	case errors.As(err, &storageErr):
		logger.WithField("op", storageErr.Op).WithError(err).Error("task storage failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	default:
		logger.WithError(err).Error("failed to process task request")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
	_ = c.Error(err)
}

// handleBindError answers a body that is not valid JSON for the request type.
// Unknown enum values decode without error and are reported by Validate.
func handleBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	_ = c.Error(err)
}
