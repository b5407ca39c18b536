package services

import (
	"errors"
	"fmt"

	"github.com/staff-academy/course-platform/internal/catalog"
)

type courseService struct {
	catalog *catalog.Catalog
}

func NewCourseService(cat *catalog.Catalog) CourseService {
	return &courseService{catalog: cat}
}

func (s *courseService) List() []catalog.CourseSummary {
	return s.catalog.Courses()
}

func (s *courseService) Get(courseID int) (*catalog.Course, error) {
	course, err := s.catalog.Course(courseID)
	if err != nil {
		if errors.Is(err, catalog.ErrCourseNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrCourseNotFound, courseID)
		}
		return nil, err
	}
	return course, nil
}
