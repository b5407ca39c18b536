package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/services"
	"github.com/staff-academy/course-platform/internal/utils"
)

// OAuth failures always land on the site root
const oauthErrorPath = "/"

type AuthHandler struct {
	BaseHandler
	authService  services.AuthService
	redirectPath string
}

func NewAuthHandler(authService services.AuthService, redirectPath string, logger utils.Logger) *AuthHandler {
	if redirectPath == "" {
		redirectPath = "/"
	}
	return &AuthHandler{
		BaseHandler:  NewBaseHandler(logger),
		authService:  authService,
		redirectPath: redirectPath,
	}
}

// Login exchanges a username and password for a session token
// @Summary Local login
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "Username and password"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Local login attempt", "username", req.Username)

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DiscordLogin redirects the browser to the Discord consent page
// @Summary Start Discord login
// @Tags auth
// @Success 302
// @Failure 400 {object} ErrorResponse
// @Router /auth/discord [get]
func (h *AuthHandler) DiscordLogin(c *gin.Context) {
	authorizeURL, err := h.authService.DiscordAuthorizeURL()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Redirect(http.StatusFound, authorizeURL)
}

// DiscordCallback completes the OAuth flow. Every outcome is a redirect.
// @Summary Discord OAuth callback
// @Tags auth
// @Param code query string false "Authorization code"
// @Param error query string false "Provider error"
// @Success 302
// @Router /auth/discord/callback [get]
func (h *AuthHandler) DiscordCallback(c *gin.Context) {
	token, err := h.authService.DiscordCallback(c.Request.Context(), c.Query("code"), c.Query("error"))
	if err != nil {
		code, details := services.OAuthErrorCode(err)
		utils.GetLogger(c, h.logger).Warn("Discord login failed", "code", code, "error", err)

		query := url.Values{"error": {code}}
		if details != "" {
			query.Set("details", details)
		}
		c.Redirect(http.StatusFound, oauthErrorPath+"?"+query.Encode())
		return
	}

	c.Redirect(http.StatusFound, appendQuery(h.redirectPath, "token", token))
}

// PublicConfig tells the browser which login methods are available
// @Summary Public client configuration
// @Tags auth
// @Produce json
// @Success 200 {object} models.PublicConfigResponse
// @Router /config [get]
func (h *AuthHandler) PublicConfig(c *gin.Context) {
	c.JSON(http.StatusOK, models.PublicConfigResponse{
		DiscordEnabled: h.authService.DiscordEnabled(),
	})
}

func (h *AuthHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid username or password"})
	case errors.Is(err, services.ErrNotConfigured):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Discord login is not configured"})
	default:
		h.respondCommonError(c, err, "Login failed")
	}
}

func appendQuery(path, key, value string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + url.Values{key: {value}}.Encode()
}
