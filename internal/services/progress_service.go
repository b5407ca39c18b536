package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/staff-academy/course-platform/internal/catalog"
	"github.com/staff-academy/course-platform/internal/events"
	"github.com/staff-academy/course-platform/internal/metrics"
	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/repositories"
	"github.com/staff-academy/course-platform/internal/validator"
)

type progressService struct {
	repo      repositories.Repository
	catalog   *catalog.Catalog
	publisher events.EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewProgressService(
	repo repositories.Repository,
	cat *catalog.Catalog,
	publisher events.EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	validator *validator.Validator,
) ProgressService {
	return &progressService{
		repo:      repo,
		catalog:   cat,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordWatched marks a video as watched and creates the course completion
// record once every video of the course is watched
func (s *progressService) RecordWatched(ctx context.Context, identity Identity, req *models.WatchVideo) (*models.WatchVideoResponse, error) {
	if errs := s.validator.GetBusinessValidator().ValidateWatchVideo(req, s.catalog); len(errs) > 0 {
		return nil, errors.Join(ErrValidationFailed, errs)
	}
	total, err := s.courseTotal(req.CourseID)
	if err != nil {
		return nil, err
	}
	_, sectionID, err := s.catalog.FindVideo(req.CourseID, req.VideoID)
	if err != nil {
		return nil, fmt.Errorf("%w: video %d", ErrNotFound, req.VideoID)
	}
	if identity.Ephemeral {
		return nil, ErrPersistenceUnavailable
	}

	before, err := s.repo.Progress().CountCompletedAll(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed videos: %w", err)
	}

	entry := &models.ProgressEntry{
		UserID:    identity.UserID,
		CourseID:  req.CourseID,
		SectionID: sectionID,
		VideoID:   req.VideoID,
		Completed: true,
		WatchedAt: s.now(),
	}
	if err := s.repo.Progress().Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record watched video: %w", err)
	}
	s.metrics.RecordVideoWatched()

	resp := &models.WatchVideoResponse{Progress: *entry}

	inCourse, err := s.repo.Progress().CountCompleted(ctx, identity.UserID, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to count course progress: %w", err)
	}
	var newlyCompleted *models.CompletionRecord
	if inCourse >= int64(total) {
		record, created, err := s.repo.Completion().InsertIfAbsent(ctx, &models.CompletionRecord{
			UserID:      identity.UserID,
			CourseID:    req.CourseID,
			CompletedAt: s.now(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to record course completion: %w", err)
		}
		resp.CourseCompleted = true
		resp.CompletedAt = &record.CompletedAt
		if created {
			newlyCompleted = record
		}
	}

	after, err := s.repo.Progress().CountCompletedAll(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed videos: %w", err)
	}
	previousLevel := CalculateLevel(before)
	resp.Level = CalculateLevel(after)
	resp.LeveledUp = resp.Level > previousLevel

	s.logger.InfoContext(ctx, "Video watched",
		"user_id", identity.UserID,
		"course_id", req.CourseID,
		"video_id", req.VideoID,
		"course_completed", resp.CourseCompleted)

	s.publish(ctx, events.NewEvent(events.TypeVideoWatched, identity.UserID, events.VideoWatchedData{
		CourseID:  entry.CourseID,
		SectionID: entry.SectionID,
		VideoID:   entry.VideoID,
		WatchedAt: entry.WatchedAt,
	}))
	if newlyCompleted != nil {
		s.metrics.RecordCourseCompleted()
		s.publish(ctx, events.NewEvent(events.TypeCourseCompleted, identity.UserID, events.CourseCompletedData{
			CourseID:    newlyCompleted.CourseID,
			CompletedAt: newlyCompleted.CompletedAt,
		}))
	}
	if resp.LeveledUp {
		s.publish(ctx, events.NewEvent(events.TypeLevelUp, identity.UserID, events.LevelUpData{
			PreviousLevel:  previousLevel,
			Level:          resp.Level,
			TotalCompleted: after,
		}))
	}

	return resp, nil
}

// GetProgress returns the caller's entries for a course ordered by video id
func (s *progressService) GetProgress(ctx context.Context, identity Identity, courseID int) ([]models.ProgressEntry, error) {
	if _, err := s.courseTotal(courseID); err != nil {
		return nil, err
	}
	if identity.Ephemeral {
		return []models.ProgressEntry{}, nil
	}

	entries, err := s.repo.Progress().ListByCourse(ctx, identity.UserID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return entries, nil
}

func (s *progressService) GetCompletion(ctx context.Context, identity Identity, courseID int) (*models.CompletionStatusResponse, error) {
	if _, err := s.courseTotal(courseID); err != nil {
		return nil, err
	}
	if identity.Ephemeral {
		return &models.CompletionStatusResponse{}, nil
	}

	record, err := s.repo.Completion().Get(ctx, identity.UserID, courseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &models.CompletionStatusResponse{}, nil
		}
		return nil, fmt.Errorf("failed to load completion: %w", err)
	}
	return &models.CompletionStatusResponse{Completed: true, CompletedAt: &record.CompletedAt}, nil
}

// MarkCompleted records a course completion explicitly. An existing record is kept unchanged.
func (s *progressService) MarkCompleted(ctx context.Context, identity Identity, courseID int) (*models.CompletionStatusResponse, error) {
	if _, err := s.courseTotal(courseID); err != nil {
		return nil, err
	}
	if identity.Ephemeral {
		return nil, ErrPersistenceUnavailable
	}

	record, created, err := s.repo.Completion().InsertIfAbsent(ctx, &models.CompletionRecord{
		UserID:      identity.UserID,
		CourseID:    courseID,
		CompletedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record course completion: %w", err)
	}

	if created {
		s.metrics.RecordCourseCompleted()
		s.logger.InfoContext(ctx, "Course marked completed", "user_id", identity.UserID, "course_id", courseID)
		s.publish(ctx, events.NewEvent(events.TypeCourseCompleted, identity.UserID, events.CourseCompletedData{
			CourseID:    record.CourseID,
			CompletedAt: record.CompletedAt,
		}))
	}
	return &models.CompletionStatusResponse{Completed: true, CompletedAt: &record.CompletedAt}, nil
}

func (s *progressService) GetLevel(ctx context.Context, identity Identity) (*models.LevelResponse, error) {
	var completed int64
	if !identity.Ephemeral {
		var err error
		completed, err = s.repo.Progress().CountCompletedAll(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to count completed videos: %w", err)
		}
	}

	info := DescribeLevel(completed)
	return &models.LevelResponse{
		Level:            info.Level,
		TotalCompleted:   info.TotalCompleted,
		CurrentThreshold: info.CurrentThreshold,
		NextThreshold:    info.NextThreshold,
		ProgressPercent:  info.ProgressPercent,
	}, nil
}

// CourseUnlocks evaluates the sequential unlock rule for every video of a course
func (s *progressService) CourseUnlocks(ctx context.Context, identity Identity, courseID int) (*models.CourseUnlocksResponse, error) {
	ordered, err := s.catalog.OrderedVideos(courseID)
	if err != nil {
		return nil, s.catalogError(err, courseID)
	}

	entries, err := s.GetProgress(ctx, identity, courseID)
	if err != nil {
		return nil, err
	}

	return &models.CourseUnlocksResponse{
		CourseID: courseID,
		Videos:   CourseAccess(ordered, entries),
	}, nil
}

func (s *progressService) courseTotal(courseID int) (int, error) {
	total, err := s.catalog.TotalVideos(courseID)
	if err != nil {
		return 0, s.catalogError(err, courseID)
	}
	return total, nil
}

func (s *progressService) catalogError(err error, courseID int) error {
	if errors.Is(err, catalog.ErrCourseNotFound) {
		return fmt.Errorf("%w: %d", ErrCourseNotFound, courseID)
	}
	return err
}

// publish is best effort; a failed publish never fails the request
func (s *progressService) publish(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "type", event.Type, "error", err)
	}
}
