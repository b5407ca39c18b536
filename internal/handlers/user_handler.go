package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/services"
	"github.com/staff-academy/course-platform/internal/utils"
)

type UserHandler struct {
	BaseHandler
	userService     services.UserService
	settingsService services.SettingsService
	progressService services.ProgressService
}

func NewUserHandler(
	userService services.UserService,
	settingsService services.SettingsService,
	progressService services.ProgressService,
	logger utils.Logger,
) *UserHandler {
	return &UserHandler{
		BaseHandler:     NewBaseHandler(logger),
		userService:     userService,
		settingsService: settingsService,
		progressService: progressService,
	}
}

// GetProfile returns the caller's profile
// @Summary Current user profile
// @Tags users
// @Produce json
// @Success 200 {object} models.UserProfileResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /user [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}

	profile, err := h.userService.Profile(c.Request.Context(), identity)
	if err != nil {
		h.respondCommonError(c, err, "Failed to load profile")
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetSettings returns the caller's preferences, or the defaults
// @Summary Get user settings
// @Tags users
// @Produce json
// @Success 200 {object} models.UserSettings
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /user/settings [get]
func (h *UserHandler) GetSettings(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}

	settings, err := h.settingsService.Get(c.Request.Context(), identity)
	if err != nil {
		h.respondCommonError(c, err, "Failed to load settings")
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings applies a partial update; omitted fields keep their value
// @Summary Update user settings
// @Tags users
// @Accept json
// @Produce json
// @Param settings body models.SettingsUpdateRequest true "Fields to change"
// @Success 200 {object} models.UserSettings
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 503 {object} ErrorResponse "Temporary session"
// @Router /user/settings [post]
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}

	var req models.SettingsUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Updating settings")

	settings, err := h.settingsService.Update(c.Request.Context(), identity, &req)
	if err != nil {
		h.respondCommonError(c, err, "Failed to update settings")
		return
	}

	c.JSON(http.StatusOK, settings)
}

// GetLevel returns the caller's level derived from all watched videos
// @Summary Get user level
// @Tags users
// @Produce json
// @Success 200 {object} models.LevelResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /user/level [get]
func (h *UserHandler) GetLevel(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}

	level, err := h.progressService.GetLevel(c.Request.Context(), identity)
	if err != nil {
		h.respondCommonError(c, err, "Failed to load level")
		return
	}

	c.JSON(http.StatusOK, level)
}
