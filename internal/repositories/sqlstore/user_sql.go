package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/repositories"
)

type UserSQL struct {
	db *gorm.DB
}

func NewUserSQL(db *gorm.DB) *UserSQL {
	return &UserSQL{db: db}
}

func (r *UserSQL) Create(ctx context.Context, user *models.User) error {
	if !user.HasAuthMethod() {
		return repositories.ErrNoAuthMethod
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", translateError(err))
	}
	return nil
}

func (r *UserSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserSQL) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *UserSQL) GetByDiscordID(ctx context.Context, discordID string) (*models.User, error) {
	return r.first(ctx, "discord_id = ?", discordID)
}

func (r *UserSQL) first(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *UserSQL) UpdateProfile(ctx context.Context, id string, update repositories.ProfileUpdate) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":       update.Name,
			"email":      update.Email,
			"avatar_url": update.AvatarURL,
			"roles":      datatypes.NewJSONSlice(update.Roles),
		})
	if res.Error != nil {
		return fmt.Errorf("update profile: %w", translateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *UserSQL) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login", at)
	if res.Error != nil {
		return fmt.Errorf("touch last login: %w", translateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
