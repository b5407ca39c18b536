package repositories

import (
	"context"
	"time"

	"github.com/staff-academy/course-platform/internal/models"
)

// ProfileUpdate carries the provider fields refreshed on every OAuth login
type ProfileUpdate struct {
	Name      string
	Email     *string
	AvatarURL *string
	Roles     []string
}

// UserRepository interface for user identity records
type UserRepository interface {
	// Create inserts a new user. Username or discord id collisions return ErrDuplicate,
	// a user with neither a credential pair nor a discord id returns ErrNoAuthMethod.
	Create(ctx context.Context, user *models.User) error

	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByDiscordID(ctx context.Context, discordID string) (*models.User, error)

	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
