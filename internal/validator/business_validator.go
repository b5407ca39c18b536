package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/staff-academy/course-platform/internal/catalog"
	"github.com/staff-academy/course-platform/internal/models"
)

const maxCatalogID = 1_000_000

// BusinessValidator handles rules that need more than struct tags
type BusinessValidator struct {
	validate *validator.Validate
}

func registerRules(validate *validator.Validate) {
	validate.RegisterValidation("theme", func(fl validator.FieldLevel) bool {
		theme := fl.Field().String()
		return theme == models.ThemeDark || theme == models.ThemeLight
	})

	validate.RegisterValidation("catalog_id", func(fl validator.FieldLevel) bool {
		id := fl.Field().Int()
		return id > 0 && id <= maxCatalogID
	})
}

// ValidateLogin checks the login body. Whitespace-only values count as missing.
func (bv *BusinessValidator) ValidateLogin(req *models.LoginRequest) ValidationErrors {
	var errors ValidationErrors

	if err := bv.validate.Struct(req); err != nil {
		errors = append(errors, ToValidationErrors(err)...)
	}
	if req.Username != "" && strings.TrimSpace(req.Username) == "" {
		errors = append(errors, ValidationError{
			Field:   "username",
			Message: "is required",
			Rule:    "required",
		})
	}

	return errors
}

// ValidateWatchVideo checks a normalized watch event against the catalog.
// Unknown courses are left to the caller so they can be reported as not found.
func (bv *BusinessValidator) ValidateWatchVideo(req *models.WatchVideo, cat *catalog.Catalog) ValidationErrors {
	var errors ValidationErrors

	if err := bv.validate.Struct(req); err != nil {
		return ToValidationErrors(err)
	}

	if _, err := cat.Course(req.CourseID); err != nil {
		return nil
	}

	_, sectionID, err := cat.FindVideo(req.CourseID, req.VideoID)
	if err != nil {
		errors = append(errors, ValidationError{
			Field:   "video_id",
			Message: "is not part of this course",
			Value:   req.VideoID,
			Rule:    "catalog",
		})
		return errors
	}

	if req.SectionID != nil && *req.SectionID != sectionID {
		errors = append(errors, ValidationError{
			Field:   "section_id",
			Message: "does not contain this video",
			Value:   *req.SectionID,
			Rule:    "catalog",
		})
	}

	return errors
}

// ValidateSettingsUpdate checks a partial settings update
func (bv *BusinessValidator) ValidateSettingsUpdate(req *models.SettingsUpdateRequest) ValidationErrors {
	if err := bv.validate.Struct(req); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}
