package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event topics
const (
	TypeVideoWatched    = "progress.video_watched"
	TypeCourseCompleted = "progress.course_completed"
	TypeLevelUp         = "progress.level_up"
)

const (
	eventSource  = "course-platform"
	eventVersion = "1.0"
)

// Topics lists every topic the platform publishes to
var Topics = []string{TypeVideoWatched, TypeCourseCompleted, TypeLevelUp}

// Event is the envelope of every published message
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	UserID    string      `json:"user_id"`
	Data      interface{} `json:"data"`
}

type VideoWatchedData struct {
	CourseID  int       `json:"course_id"`
	SectionID int       `json:"section_id"`
	VideoID   int       `json:"video_id"`
	WatchedAt time.Time `json:"watched_at"`
}

type CourseCompletedData struct {
	CourseID    int       `json:"course_id"`
	CompletedAt time.Time `json:"completed_at"`
}

type LevelUpData struct {
	PreviousLevel  int   `json:"previous_level"`
	Level          int   `json:"level"`
	TotalCompleted int64 `json:"total_completed"`
}

// NewEvent builds an envelope with a fresh id and the current time
func NewEvent(eventType, userID string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Data:      data,
	}
}

// EventPublisher delivers events to the message bus
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
