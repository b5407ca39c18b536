package sqlstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/staff-academy/course-platform/internal/models"
)

type SettingsSQL struct {
	db *gorm.DB
}

func NewSettingsSQL(db *gorm.DB) *SettingsSQL {
	return &SettingsSQL{db: db}
}

func (r *SettingsSQL) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	var settings models.UserSettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return nil, translateError(err)
	}
	return &settings, nil
}

// Upsert stamps updated_at itself; gorm only fills it on insert when zero.
func (r *SettingsSQL) Upsert(ctx context.Context, settings *models.UserSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"theme", "notifications_enabled", "email_notifications", "updated_at",
			}),
		}).
		Create(settings).Error
	if err != nil {
		return fmt.Errorf("upsert settings: %w", translateError(err))
	}
	return nil
}
