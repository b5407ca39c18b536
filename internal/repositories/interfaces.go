package repositories

import (
	"context"
	"errors"

	"github.com/staff-academy/course-platform/internal/models"
)

// Storage sentinel errors. Any other error from a repository means the store is unusable.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("duplicate record")
	ErrNoAuthMethod = errors.New("user has no login method")
)

// ProgressRepository interface for per-video watch entries
type ProgressRepository interface {
	// Upsert inserts or overwrites the entry for (user, course, video) and
	// reloads entry with the stored row.
	Upsert(ctx context.Context, entry *models.ProgressEntry) error

	// ListByCourse returns entries ordered by video id ascending
	ListByCourse(ctx context.Context, userID string, courseID int) ([]models.ProgressEntry, error)
	ListByUser(ctx context.Context, userID string) ([]models.ProgressEntry, error)

	CountCompleted(ctx context.Context, userID string, courseID int) (int64, error)
	CountCompletedAll(ctx context.Context, userID string) (int64, error)
}

// CompletionRepository interface for per-course completion markers
type CompletionRepository interface {
	// InsertIfAbsent stores record unless one exists for (user, course).
	// It returns the stored record and whether this call created it.
	InsertIfAbsent(ctx context.Context, record *models.CompletionRecord) (*models.CompletionRecord, bool, error)

	Get(ctx context.Context, userID string, courseID int) (*models.CompletionRecord, error)
	ListByUser(ctx context.Context, userID string) ([]models.CompletionRecord, error)
}

// SettingsRepository interface for user preferences
type SettingsRepository interface {
	Get(ctx context.Context, userID string) (*models.UserSettings, error)
	Upsert(ctx context.Context, settings *models.UserSettings) error
}
