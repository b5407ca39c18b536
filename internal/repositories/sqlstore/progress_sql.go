package sqlstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/staff-academy/course-platform/internal/models"
)

// ProgressSQL always reads from the database. Progress lists change on every
// watch event, and unlock state is derived from them.
type ProgressSQL struct {
	db *gorm.DB
}

func NewProgressSQL(db *gorm.DB) *ProgressSQL {
	return &ProgressSQL{db: db}
}

// Upsert relies on the (user_id, course_id, video_id) unique index so that
// concurrent watch events for one video collapse into a single row.
func (r *ProgressSQL) Upsert(ctx context.Context, entry *models.ProgressEntry) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}, {Name: "video_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"section_id", "completed", "watched_at",
			}),
		}).
		Create(entry).Error
	if err != nil {
		return fmt.Errorf("upsert progress: %w", translateError(err))
	}

	// reload so the caller sees the surviving row after a conflict
	var stored models.ProgressEntry
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND video_id = ?", entry.UserID, entry.CourseID, entry.VideoID).
		First(&stored).Error
	if err != nil {
		return fmt.Errorf("reload progress: %w", translateError(err))
	}
	*entry = stored
	return nil
}

func (r *ProgressSQL) ListByCourse(ctx context.Context, userID string, courseID int) ([]models.ProgressEntry, error) {
	entries := []models.ProgressEntry{}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("video_id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", translateError(err))
	}
	return entries, nil
}

func (r *ProgressSQL) ListByUser(ctx context.Context, userID string) ([]models.ProgressEntry, error) {
	var entries []models.ProgressEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("course_id ASC, video_id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list user progress: %w", translateError(err))
	}
	return entries, nil
}

func (r *ProgressSQL) CountCompleted(ctx context.Context, userID string, courseID int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProgressEntry{}).
		Where("user_id = ? AND course_id = ? AND completed = ?", userID, courseID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count progress: %w", translateError(err))
	}
	return count, nil
}

func (r *ProgressSQL) CountCompletedAll(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProgressEntry{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count user progress: %w", translateError(err))
	}
	return count, nil
}
