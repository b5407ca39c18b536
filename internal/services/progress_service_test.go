package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/staff-academy/course-platform/internal/events"
	"github.com/staff-academy/course-platform/internal/metrics"
	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/repositories"
	"github.com/staff-academy/course-platform/internal/repositories/memory"
	"github.com/staff-academy/course-platform/internal/validator"
)

type progressFixture struct {
	svc       *progressService
	store     *memory.Store
	publisher *events.MockEventPublisher
	clock     time.Time
	user      Identity
}

func newProgressFixture(t *testing.T) *progressFixture {
	t.Helper()
	store := memory.NewStore()
	publisher := events.NewMockEventPublisher(newTestLogger())

	user := &models.User{Name: "Learner", DiscordID: strPtr("d-1")}
	if err := store.User().Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	f := &progressFixture{
		store:     store,
		publisher: publisher,
		clock:     time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		user:      Identity{UserID: user.ID, Name: user.Name},
	}
	svc := NewProgressService(store, newTestCatalog(t), publisher, metrics.New(), newTestLogger(), validator.New()).(*progressService)
	svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	f.svc = svc
	return f
}

func (f *progressFixture) watch(t *testing.T, course, video int) *models.WatchVideoResponse {
	t.Helper()
	resp, err := f.svc.RecordWatched(context.Background(), f.user, &models.WatchVideo{CourseID: course, VideoID: video})
	if err != nil {
		t.Fatalf("RecordWatched(%d, %d) error = %v", course, video, err)
	}
	return resp
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestProgressService_CourseCompletionScenario(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	resp := f.watch(t, 1, 1)
	if resp.CourseCompleted {
		t.Fatal("course should not be complete after one video")
	}
	entries, err := f.svc.GetProgress(ctx, f.user, 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("GetProgress() = %v, %v; want one entry", entries, err)
	}
	status, _ := f.svc.GetCompletion(ctx, f.user, 1)
	if status.Completed || status.CompletedAt != nil {
		t.Errorf("GetCompletion() = %+v, want not completed", status)
	}

	f.watch(t, 1, 2)
	f.watch(t, 1, 3)
	resp = f.watch(t, 1, 4)
	if !resp.CourseCompleted || resp.CompletedAt == nil {
		t.Fatalf("last video should complete the course, got %+v", resp)
	}
	firstCompletion := *resp.CompletedAt

	status, _ = f.svc.GetCompletion(ctx, f.user, 1)
	if !status.Completed || !status.CompletedAt.Equal(firstCompletion) {
		t.Errorf("GetCompletion() = %+v, want completed at %v", status, firstCompletion)
	}

	resp = f.watch(t, 1, 4)
	if !resp.CourseCompleted || !resp.CompletedAt.Equal(firstCompletion) {
		t.Errorf("repeat watch changed completion: %+v", resp)
	}
	records, _ := f.store.Completion().ListByUser(ctx, f.user.UserID)
	if len(records) != 1 {
		t.Errorf("completion records = %d, want 1", len(records))
	}
	if got := len(f.publisher.EventsOfType(events.TypeCourseCompleted)); got != 1 {
		t.Errorf("course completed events = %d, want 1", got)
	}

	entries, _ = f.svc.GetProgress(ctx, f.user, 1)
	for i, e := range entries {
		if e.VideoID != i+1 {
			t.Errorf("entry %d has video %d, progress must be ordered by video id", i, e.VideoID)
		}
	}
}

func TestProgressService_RecordWatchedIsIdempotent(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	first := f.watch(t, 1, 2)
	second := f.watch(t, 1, 2)

	entries, _ := f.svc.GetProgress(ctx, f.user, 1)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if !entries[0].WatchedAt.After(first.Progress.WatchedAt) || !entries[0].WatchedAt.Equal(second.Progress.WatchedAt) {
		t.Errorf("stored timestamp %v should be the latest watch %v", entries[0].WatchedAt, second.Progress.WatchedAt)
	}
	if entries[0].SectionID != 1 {
		t.Errorf("section should come from the catalog, got %d", entries[0].SectionID)
	}
}

func TestProgressService_LevelScenario(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	resp := f.watch(t, 1, 1)
	if resp.Level != 1 || resp.LeveledUp {
		t.Errorf("after first video: level %d leveled up %v", resp.Level, resp.LeveledUp)
	}
	level, err := f.svc.GetLevel(ctx, f.user)
	if err != nil {
		t.Fatalf("GetLevel() error = %v", err)
	}
	if level.Level != 1 || level.ProgressPercent != 50 || level.TotalCompleted != 1 {
		t.Errorf("GetLevel() = %+v, want level 1 at 50%%", level)
	}

	resp = f.watch(t, 2, 5)
	if resp.Level != 2 || !resp.LeveledUp {
		t.Errorf("after second video: level %d leveled up %v", resp.Level, resp.LeveledUp)
	}
	levelUps := f.publisher.EventsOfType(events.TypeLevelUp)
	if len(levelUps) != 1 {
		t.Fatalf("level up events = %d, want 1", len(levelUps))
	}
	if data := levelUps[0].Data.(events.LevelUpData); data.PreviousLevel != 1 || data.Level != 2 {
		t.Errorf("unexpected level up payload %+v", data)
	}

	// a single-video course completes on its first watch
	if !resp.CourseCompleted {
		t.Error("course 2 should be complete")
	}
	if again := f.watch(t, 2, 5); again.LeveledUp {
		t.Error("re-watching must not level up")
	}
}

func TestProgressService_Rejections(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     models.WatchVideo
		wantErr error
	}{
		{"unknown course", models.WatchVideo{CourseID: 42, VideoID: 1}, ErrCourseNotFound},
		{"video of another course", models.WatchVideo{CourseID: 1, VideoID: 5}, ErrValidationFailed},
		{"section mismatch", models.WatchVideo{CourseID: 1, SectionID: intPtr(1), VideoID: 3}, ErrValidationFailed},
		{"missing video", models.WatchVideo{CourseID: 1}, ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordWatched(ctx, f.user, &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RecordWatched() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := f.svc.GetProgress(ctx, f.user, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProgress() unknown course error = %v", err)
	}
	if _, err := f.svc.MarkCompleted(ctx, f.user, 42); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("MarkCompleted() unknown course error = %v", err)
	}
	if got := len(f.publisher.GetPublishedEvents()); got != 0 {
		t.Errorf("rejected requests published %d events", got)
	}
}

func TestProgressService_EphemeralIdentity(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()
	temp := Identity{UserID: EphemeralUserID("d-9"), Ephemeral: true}

	if _, err := f.svc.RecordWatched(ctx, temp, &models.WatchVideo{CourseID: 1, VideoID: 1}); !errors.Is(err, ErrPersistenceUnavailable) {
		t.Errorf("RecordWatched() error = %v, want ErrPersistenceUnavailable", err)
	}
	if _, err := f.svc.MarkCompleted(ctx, temp, 1); !errors.Is(err, ErrPersistenceUnavailable) {
		t.Errorf("MarkCompleted() error = %v, want ErrPersistenceUnavailable", err)
	}

	entries, err := f.svc.GetProgress(ctx, temp, 1)
	if err != nil || entries == nil || len(entries) != 0 {
		t.Errorf("GetProgress() = %v, %v; want empty list", entries, err)
	}
	level, err := f.svc.GetLevel(ctx, temp)
	if err != nil || level.Level != 1 {
		t.Errorf("GetLevel() = %+v, %v", level, err)
	}
	unlocks, err := f.svc.CourseUnlocks(ctx, temp, 1)
	if err != nil || !unlocks.Videos[0].Unlocked || unlocks.Videos[1].Unlocked {
		t.Errorf("CourseUnlocks() = %+v, %v", unlocks, err)
	}
	if got := len(f.publisher.GetPublishedEvents()); got != 0 {
		t.Errorf("temporary identity published %d events", got)
	}
}

func TestProgressService_MarkCompletedIsFirstWriterWins(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	first, err := f.svc.MarkCompleted(ctx, f.user, 2)
	if err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	second, err := f.svc.MarkCompleted(ctx, f.user, 2)
	if err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Errorf("completion timestamp changed from %v to %v", first.CompletedAt, second.CompletedAt)
	}
	if got := len(f.publisher.EventsOfType(events.TypeCourseCompleted)); got != 1 {
		t.Errorf("course completed events = %d, want 1", got)
	}
}

func TestProgressService_CourseUnlocks(t *testing.T) {
	f := newProgressFixture(t)
	f.watch(t, 1, 1)
	f.watch(t, 1, 2)

	resp, err := f.svc.CourseUnlocks(context.Background(), f.user, 1)
	if err != nil {
		t.Fatalf("CourseUnlocks() error = %v", err)
	}
	want := map[int]bool{1: true, 2: true, 3: true, 4: false}
	for _, v := range resp.Videos {
		if v.Unlocked != want[v.VideoID] {
			t.Errorf("video %d unlocked = %v, want %v", v.VideoID, v.Unlocked, want[v.VideoID])
		}
	}
}

func TestProgressService_PublishFailureIsIgnored(t *testing.T) {
	f := newProgressFixture(t)
	f.publisher.FailWith(errors.New("broker down"))

	resp := f.watch(t, 2, 5)
	if !resp.CourseCompleted {
		t.Error("a failed publish must not affect the recorded progress")
	}
}

func TestProgressService_StorageErrorsPropagate(t *testing.T) {
	f := newProgressFixture(t)
	svc := NewProgressService(brokenProgressRepo{f.store}, newTestCatalog(t), nil, nil, newTestLogger(), validator.New())

	_, err := svc.RecordWatched(context.Background(), f.user, &models.WatchVideo{CourseID: 1, VideoID: 1})
	if !errors.Is(err, errStorageDown) {
		t.Errorf("RecordWatched() error = %v, want storage error", err)
	}
}

type brokenProgressRepo struct{ *memory.Store }

func (r brokenProgressRepo) Progress() repositories.ProgressRepository { return brokenProgress{} }

type brokenProgress struct {
	repositories.ProgressRepository
}

func (brokenProgress) CountCompletedAll(ctx context.Context, userID string) (int64, error) {
	return 0, errStorageDown
}
