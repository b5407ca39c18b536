package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/staff-academy/course-platform/internal/metrics"
	"github.com/staff-academy/course-platform/internal/services"
	"github.com/staff-academy/course-platform/internal/utils"
)

const serviceName = "course-platform"

// RouterConfig holds the HTTP settings that are not owned by a service
type RouterConfig struct {
	AppRedirectPath string
	Metrics         *metrics.Metrics
}

type HandlerManager struct {
	authHandler     *AuthHandler
	userHandler     *UserHandler
	progressHandler *ProgressHandler
	courseHandler   *CourseHandler
	authMiddleware  *AuthMiddleware
	serviceManager  services.ServiceManager
	metrics         *metrics.Metrics
	logger          utils.Logger
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger, cfg RouterConfig) *HandlerManager {
	return &HandlerManager{
		authHandler:     NewAuthHandler(serviceManager.Auth(), cfg.AppRedirectPath, logger),
		userHandler:     NewUserHandler(serviceManager.User(), serviceManager.Settings(), serviceManager.Progress(), logger),
		progressHandler: NewProgressHandler(serviceManager.Progress(), serviceManager.Report(), logger),
		courseHandler:   NewCourseHandler(serviceManager.Course(), logger),
		authMiddleware:  NewAuthMiddleware(serviceManager.Auth(), logger),
		serviceManager:  serviceManager,
		metrics:         cfg.Metrics,
		logger:          logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")

	// Public routes
	{
		api.POST("/login", hm.authHandler.Login)
		api.GET("/auth/discord", hm.authHandler.DiscordLogin)
		api.GET("/auth/discord/callback", hm.authHandler.DiscordCallback)
		api.GET("/config", hm.authHandler.PublicConfig)

		api.GET("/courses", hm.courseHandler.ListCourses)
		api.GET("/course", hm.courseHandler.GetCourse)
	}

	// Authenticated routes
	authed := api.Group("")
	authed.Use(hm.authMiddleware.RequireAuth())
	{
		user := authed.Group("/user")
		{
			user.GET("", hm.userHandler.GetProfile)
			user.GET("/settings", hm.userHandler.GetSettings)
			user.POST("/settings", hm.userHandler.UpdateSettings)
			user.GET("/level", hm.userHandler.GetLevel)
		}

		progress := authed.Group("/progress")
		{
			progress.GET("", hm.progressHandler.GetProgress)
			progress.POST("", hm.progressHandler.RecordWatched)
			progress.GET("/export", hm.progressHandler.ExportProgress)
			progress.GET("/:courseId", hm.progressHandler.GetProgress)
		}
		authed.POST("/video-watched", hm.progressHandler.RecordWatched)

		authed.GET("/completion-status", hm.progressHandler.GetCompletion)
		authed.GET("/completion/:courseId", hm.progressHandler.GetCompletion)
		authed.POST("/completion", hm.progressHandler.MarkCompleted)

		authed.GET("/course/:courseId/unlocks", hm.progressHandler.GetUnlocks)
	}

	if hm.metrics != nil {
		router.GET("/metrics", gin.WrapH(hm.metrics.Handler()))
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
			utils.GetLogger(c, hm.logger).Warn("Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": serviceName,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	})
}
