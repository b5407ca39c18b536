package sqlstore

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/staff-academy/course-platform/internal/repositories"
)

// translateError maps gorm errors onto the repository sentinels.
// The DB must be opened with TranslateError so unique violations surface as ErrDuplicatedKey.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", repositories.ErrDuplicate, err)
	default:
		return err
	}
}
