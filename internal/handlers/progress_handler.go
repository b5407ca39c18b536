package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/services"
	"github.com/staff-academy/course-platform/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
	reportService   services.ReportService
}

func NewProgressHandler(progressService services.ProgressService, reportService services.ReportService, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
		reportService:   reportService,
	}
}

// GetProgress lists the caller's watched videos of a course
// @Summary Get course progress
// @Tags progress
// @Produce json
// @Param courseId query int false "Course ID"
// @Param courseId path int false "Course ID"
// @Success 200 {array} models.ProgressEntry
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /progress [get]
// @Router /progress/{courseId} [get]
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	courseID, ok := courseIDFrom(c)
	if !ok {
		return
	}

	entries, err := h.progressService.GetProgress(c.Request.Context(), identity, courseID)
	if err != nil {
		h.respondCommonError(c, err, "Failed to load progress")
		return
	}

	c.JSON(http.StatusOK, entries)
}

// RecordWatched marks a video as watched
// @Summary Record a watched video
// @Tags progress
// @Accept json
// @Produce json
// @Param body body models.WatchVideoRequest true "Course, optional section and video; snake_case or camelCase"
// @Success 200 {object} models.WatchVideoResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 503 {object} ErrorResponse "Temporary session"
// @Router /video-watched [post]
// @Router /progress [post]
func (h *ProgressHandler) RecordWatched(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}

	var req models.WatchVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	watch := req.Normalize()

	h.LogRequest(c, "Recording watched video", "course_id", watch.CourseID, "video_id", watch.VideoID)

	resp, err := h.progressService.RecordWatched(c.Request.Context(), identity, &watch)
	if err != nil {
		h.respondCommonError(c, err, "Failed to record progress")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetCompletion reports whether the caller completed a course
// @Summary Get course completion
// @Tags progress
// @Produce json
// @Param courseId query int false "Course ID"
// @Param courseId path int false "Course ID"
// @Success 200 {object} models.CompletionStatusResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /completion-status [get]
// @Router /completion/{courseId} [get]
func (h *ProgressHandler) GetCompletion(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	courseID, ok := courseIDFrom(c)
	if !ok {
		return
	}

	status, err := h.progressService.GetCompletion(c.Request.Context(), identity, courseID)
	if err != nil {
		h.respondCommonError(c, err, "Failed to load completion")
		return
	}

	c.JSON(http.StatusOK, status)
}

// MarkCompleted records a course completion. Repeat calls keep the first timestamp.
// @Summary Mark course completed
// @Tags progress
// @Accept json
// @Produce json
// @Param body body models.CompletionRequest true "Course ID"
// @Success 200 {object} models.CompletionStatusResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 503 {object} ErrorResponse "Temporary session"
// @Router /completion [post]
func (h *ProgressHandler) MarkCompleted(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}

	var req models.CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	courseID := req.Course()
	if courseID <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "courseId is required"})
		return
	}

	h.LogRequest(c, "Marking course completed", "course_id", courseID)

	status, err := h.progressService.MarkCompleted(c.Request.Context(), identity, courseID)
	if err != nil {
		h.respondCommonError(c, err, "Failed to record completion")
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetUnlocks evaluates which videos of a course the caller may open
// @Summary Get video unlock state
// @Tags progress
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 200 {object} models.CourseUnlocksResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /course/{courseId}/unlocks [get]
func (h *ProgressHandler) GetUnlocks(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	courseID, ok := courseIDFrom(c)
	if !ok {
		return
	}

	resp, err := h.progressService.CourseUnlocks(c.Request.Context(), identity, courseID)
	if err != nil {
		h.respondCommonError(c, err, "Failed to evaluate unlocks")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExportProgress downloads the caller's progress as an xlsx workbook
// @Summary Export progress
// @Tags progress
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /progress/export [get]
func (h *ProgressHandler) ExportProgress(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting progress")

	// buffered so a failed export can still answer with a JSON error
	var buf bytes.Buffer
	if err := h.reportService.ExportProgress(c.Request.Context(), identity, &buf); err != nil {
		h.respondCommonError(c, err, "Failed to export progress")
		return
	}

	filename := fmt.Sprintf("progress-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// courseIDFrom reads the course id from the path, then the query string.
// It writes a 400 and returns false when the id is missing or malformed.
func courseIDFrom(c *gin.Context) (int, bool) {
	raw := c.Param("courseId")
	if raw == "" {
		raw = c.Query("courseId")
	}
	if raw == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "courseId is required"})
		return 0, false
	}

	courseID, ok := parseCourseID(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid courseId",
			Details: raw,
		})
		return 0, false
	}
	return courseID, true
}
