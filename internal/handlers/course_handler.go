package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/staff-academy/course-platform/internal/services"
	"github.com/staff-academy/course-platform/internal/utils"
)

type CourseHandler struct {
	BaseHandler
	courseService services.CourseService
}

func NewCourseHandler(courseService services.CourseService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:   NewBaseHandler(logger),
		courseService: courseService,
	}
}

// ListCourses returns every course with its video count
// @Summary List courses
// @Tags courses
// @Produce json
// @Success 200 {array} catalog.CourseSummary
// @Router /courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	c.JSON(http.StatusOK, h.courseService.List())
}

// GetCourse returns a course with its sections, videos and resources
// @Summary Get course
// @Tags courses
// @Produce json
// @Param courseId query int true "Course ID"
// @Success 200 {object} catalog.Course
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /course [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	courseID, ok := courseIDFrom(c)
	if !ok {
		return
	}

	course, err := h.courseService.Get(courseID)
	if err != nil {
		h.respondCommonError(c, err, "Failed to load course")
		return
	}

	c.JSON(http.StatusOK, course)
}
