package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/staff-academy/course-platform/internal/cache"
	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/repositories"
)

type CompletionSQL struct {
	db    *gorm.DB
	cache *cache.CacheManager
}

func NewCompletionSQL(db *gorm.DB, cm *cache.CacheManager) *CompletionSQL {
	return &CompletionSQL{db: db, cache: cm}
}

// InsertIfAbsent is first-writer-wins: a conflicting insert is dropped and the
// existing row is returned unchanged.
func (r *CompletionSQL) InsertIfAbsent(ctx context.Context, record *models.CompletionRecord) (*models.CompletionRecord, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(record)
	if res.Error != nil {
		return nil, false, fmt.Errorf("insert completion: %w", translateError(res.Error))
	}

	created := res.RowsAffected > 0
	if created {
		cache.SafeDelete(ctx, r.cache.Completion, cache.CompletionKey(record.UserID, record.CourseID))
		return record, true, nil
	}

	existing, err := r.load(ctx, record.UserID, record.CourseID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *CompletionSQL) Get(ctx context.Context, userID string, courseID int) (*models.CompletionRecord, error) {
	var record models.CompletionRecord
	err := r.cache.Completion.CacheOrExecute(ctx, cache.CompletionKey(userID, courseID), &record,
		cache.CompletionCacheConfig.TTL, func() (interface{}, error) {
			return r.load(ctx, userID, courseID)
		})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return &record, nil
}

func (r *CompletionSQL) load(ctx context.Context, userID string, courseID int) (*models.CompletionRecord, error) {
	var record models.CompletionRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&record).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &record, nil
}

func (r *CompletionSQL) ListByUser(ctx context.Context, userID string) ([]models.CompletionRecord, error) {
	var records []models.CompletionRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("course_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", translateError(err))
	}
	return records, nil
}
