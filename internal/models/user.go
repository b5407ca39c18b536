package models

import (
	"time"

	"gorm.io/datatypes"
)

// User is a platform identity. It carries a local credential pair, a Discord id, or both.
type User struct {
	ID           string                      `json:"id" gorm:"primaryKey;size:36"`
	Username     *string                     `json:"username" gorm:"uniqueIndex;size:100"`
	PasswordHash *string                     `json:"-" gorm:"column:password;size:255"`
	Name         string                      `json:"name" gorm:"not null;size:255"`
	Email        *string                     `json:"email" gorm:"size:255"`
	DiscordID    *string                     `json:"discord_id" gorm:"uniqueIndex;size:64"`
	AvatarURL    *string                     `json:"avatar_url" gorm:"size:500"`
	Roles        datatypes.JSONSlice[string] `json:"roles,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
	LastLogin    *time.Time                  `json:"last_login"`

	// Ephemeral users are synthesized when storage is unreachable and never persisted
	Ephemeral bool `json:"ephemeral,omitempty" gorm:"-"`
}

func (User) TableName() string {
	return "users"
}

// HasAuthMethod reports whether the user can log in by at least one method
func (u *User) HasAuthMethod() bool {
	hasLocal := u.Username != nil && *u.Username != "" && u.PasswordHash != nil && *u.PasswordHash != ""
	hasDiscord := u.DiscordID != nil && *u.DiscordID != ""
	return hasLocal || hasDiscord
}

// DisplayUsername returns the username or an empty string
func (u *User) DisplayUsername() string {
	if u.Username == nil {
		return ""
	}
	return *u.Username
}

// Theme values
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// UserSettings holds per-user preferences. A missing row means defaults.
type UserSettings struct {
	UserID               string    `json:"user_id" gorm:"primaryKey;size:36"`
	Theme                string    `json:"theme" gorm:"size:20;not null"`
	NotificationsEnabled bool      `json:"notifications_enabled" gorm:"not null"`
	EmailNotifications   bool      `json:"email_notifications" gorm:"not null"`
	UpdatedAt            time.Time `json:"updated_at"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (UserSettings) TableName() string {
	return "user_settings"
}

// DefaultUserSettings returns the implied settings for a user without a stored row
func DefaultUserSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:               userID,
		Theme:                ThemeDark,
		NotificationsEnabled: true,
		EmailNotifications:   false,
	}
}
