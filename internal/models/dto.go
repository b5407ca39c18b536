package models

import "time"

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=72"`
}

type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

type UserProfileResponse struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Name      string     `json:"name"`
	Email     *string    `json:"email"`
	AvatarURL *string    `json:"avatar_url"`
	DiscordID *string    `json:"discord_id"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	Ephemeral bool       `json:"ephemeral,omitempty"`
}

// SettingsUpdateRequest is a partial update; nil fields keep their stored value
type SettingsUpdateRequest struct {
	Theme                *string `json:"theme" validate:"omitempty,theme"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
	EmailNotifications   *bool   `json:"email_notifications"`
}

// WatchVideoRequest accepts both snake_case and camelCase field names
type WatchVideoRequest struct {
	CourseID       *int `json:"course_id"`
	SectionID      *int `json:"section_id"`
	VideoID        *int `json:"video_id"`
	CourseIDCamel  *int `json:"courseId"`
	SectionIDCamel *int `json:"sectionId"`
	VideoIDCamel   *int `json:"videoId"`
}

// WatchVideo is the normalized form of WatchVideoRequest
type WatchVideo struct {
	CourseID  int  `json:"course_id" validate:"required,catalog_id"`
	SectionID *int `json:"section_id" validate:"omitempty,catalog_id"`
	VideoID   int  `json:"video_id" validate:"required,catalog_id"`
}

// Normalize merges both naming styles, snake_case wins when both are sent
func (r WatchVideoRequest) Normalize() WatchVideo {
	pick := func(a, b *int) *int {
		if a != nil {
			return a
		}
		return b
	}
	var out WatchVideo
	if v := pick(r.CourseID, r.CourseIDCamel); v != nil {
		out.CourseID = *v
	}
	out.SectionID = pick(r.SectionID, r.SectionIDCamel)
	if v := pick(r.VideoID, r.VideoIDCamel); v != nil {
		out.VideoID = *v
	}
	return out
}

type WatchVideoResponse struct {
	Progress        ProgressEntry `json:"progress"`
	CourseCompleted bool          `json:"course_completed"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	Level           int           `json:"level"`
	LeveledUp       bool          `json:"leveled_up"`
}

type CompletionRequest struct {
	CourseID      *int `json:"courseId"`
	CourseIDSnake *int `json:"course_id"`
}

// Course returns the requested course id or zero
func (r CompletionRequest) Course() int {
	if r.CourseID != nil {
		return *r.CourseID
	}
	if r.CourseIDSnake != nil {
		return *r.CourseIDSnake
	}
	return 0
}

type CompletionStatusResponse struct {
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
}

type LevelResponse struct {
	Level            int     `json:"level"`
	TotalCompleted   int64   `json:"total_completed"`
	CurrentThreshold int64   `json:"current_threshold"`
	NextThreshold    int64   `json:"next_threshold"`
	ProgressPercent  float64 `json:"progress_percent"`
}

type VideoUnlockStatus struct {
	VideoID   int  `json:"video_id"`
	SectionID int  `json:"section_id"`
	Completed bool `json:"completed"`
	Unlocked  bool `json:"unlocked"`
}

type CourseUnlocksResponse struct {
	CourseID int                 `json:"course_id"`
	Videos   []VideoUnlockStatus `json:"videos"`
}

type PublicConfigResponse struct {
	DiscordEnabled bool `json:"discord_enabled"`
}
