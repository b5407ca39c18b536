package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/staff-academy/course-platform/internal/services"
	"github.com/staff-academy/course-platform/internal/utils"
	"github.com/staff-academy/course-platform/internal/validator"
)

// ErrorResponse is the body of every JSON error
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// BaseHandler carries the logger shared by all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs an incoming call with the request-scoped logger
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "user_id", c.GetString(contextUserID))
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string) {
	utils.GetLogger(c, h.logger).Error(msg,
		"error", err,
		"user_id", c.GetString(contextUserID))
}

// requireIdentity returns the caller, writing a 401 when the route was
// registered without the auth middleware
func (h *BaseHandler) requireIdentity(c *gin.Context) (services.Identity, bool) {
	identity, err := GetIdentityFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return services.Identity{}, false
	}
	return identity, true
}

// respondCommonError writes the status shared by every handler for service errors
func (h *BaseHandler) respondCommonError(c *gin.Context, err error, fallback string) {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, services.ErrValidationFailed):
		resp := ErrorResponse{Message: "Validation failed"}
		if errors.As(err, &validationErrors) {
			resp.Details = validationErrors
		}
		c.JSON(http.StatusBadRequest, resp)
	case errors.Is(err, services.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Course not found"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Not found", Details: err.Error()})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
	case errors.Is(err, services.ErrPersistenceUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "Progress storage is unavailable for this session",
			Details: "sign in again once the service has recovered",
		})
	default:
		h.LogError(c, err, fallback)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: fallback})
	}
}

// parseCourseID reads a positive course id from a path or query value
func parseCourseID(raw string) (int, bool) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
