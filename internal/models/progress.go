package models

import "time"

// ProgressEntry records that a user watched one video of a course.
// Unique per (user, course, video); a repeat watch overwrites it.
type ProgressEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"size:36;not null;uniqueIndex:idx_progress_user_course_video,priority:1"`
	CourseID  int       `json:"course_id" gorm:"not null;uniqueIndex:idx_progress_user_course_video,priority:2;index"`
	SectionID int       `json:"section_id" gorm:"not null"`
	VideoID   int       `json:"video_id" gorm:"not null;uniqueIndex:idx_progress_user_course_video,priority:3"`
	Completed bool      `json:"completed" gorm:"not null"`
	WatchedAt time.Time `json:"watched_at" gorm:"not null"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (ProgressEntry) TableName() string {
	return "progress"
}

// CompletionRecord marks a course as fully watched. Created once, never updated.
type CompletionRecord struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"size:36;not null;uniqueIndex:idx_completion_user_course,priority:1"`
	CourseID    int       `json:"course_id" gorm:"not null;uniqueIndex:idx_completion_user_course,priority:2"`
	CompletedAt time.Time `json:"completed_at" gorm:"not null"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (CompletionRecord) TableName() string {
	return "completions"
}

// AllModels lists every persisted model, in migration order
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&UserSettings{},
		&ProgressEntry{},
		&CompletionRecord{},
	}
}
