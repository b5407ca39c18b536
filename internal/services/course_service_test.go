package services

import (
	"errors"
	"testing"
)

func TestCourseService(t *testing.T) {
	svc := NewCourseService(newTestCatalog(t))

	courses := svc.List()
	if len(courses) != 2 || courses[0].ID != 1 || courses[0].VideoCount != 4 {
		t.Errorf("List() = %+v", courses)
	}

	course, err := svc.Get(2)
	if err != nil || course.Name != "Advanced" {
		t.Errorf("Get(2) = %+v, %v", course, err)
	}
	if _, err := svc.Get(9); !errors.Is(err, ErrCourseNotFound) || !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(9) error = %v", err)
	}
}
