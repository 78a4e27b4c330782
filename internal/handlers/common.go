package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vectorprep/session-service/internal/services"
	"github.com/vectorprep/session-service/internal/utils"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
	// MustForceComplete tells the client to stop retrying the failed call
	// and invoke force-completion instead.
	MustForceComplete bool `json:"must_force_complete,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the shared logging and error-mapping helpers.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	raw := strings.TrimSpace(c.Param(param))
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "must be a positive integer",
		})
		return 0
	}
	return uint(id)
}

// handleServiceError maps the service error taxonomy onto HTTP statuses.
// Integrity faults deliberately surface as a generic 500 so no record
// contents leak to the caller.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error(), Code: "not_found"})
	case services.IsExpired(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message:           err.Error(),
			Code:              "expired",
			MustForceComplete: true,
		})
	case services.IsInvalidState(err):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error(), Code: "invalid_state"})
	case services.IsSupplyShortage(err):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: err.Error(), Code: "supply_shortage"})
	case services.IsBusy(err):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Message: err.Error(), Code: "busy"})
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error(), Code: "validation_failed"})
	default:
		h.logger.LogError(err, "Unhandled service error",
			"method", c.Request.Method,
			"path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "session-service",
	})
}
