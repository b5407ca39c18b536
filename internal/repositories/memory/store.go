// Package memory is a process-local storage engine with the same uniqueness
// and conflict rules as the SQL store. Data is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/repositories"
)

type progressKey struct {
	userID   string
	courseID int
	videoID  int
}

type completionKey struct {
	userID   string
	courseID int
}

type state struct {
	users       map[string]models.User
	progress    map[progressKey]models.ProgressEntry
	completions map[completionKey]models.CompletionRecord
	settings    map[string]models.UserSettings

	nextProgressID   uint
	nextCompletionID uint
}

func newState() *state {
	return &state{
		users:       make(map[string]models.User),
		progress:    make(map[progressKey]models.ProgressEntry),
		completions: make(map[completionKey]models.CompletionRecord),
		settings:    make(map[string]models.UserSettings),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.progress {
		c.progress[k] = v
	}
	for k, v := range s.completions {
		c.completions[k] = v
	}
	for k, v := range s.settings {
		c.settings[k] = v
	}
	c.nextProgressID = s.nextProgressID
	c.nextCompletionID = s.nextCompletionID
	return c
}

// Store implements repositories.Repository in memory. Safe for concurrent use.
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) User() repositories.UserRepository             { return userRepo{s} }
func (s *Store) Progress() repositories.ProgressRepository     { return progressRepo{s} }
func (s *Store) Completion() repositories.CompletionRepository { return completionRepo{s} }
func (s *Store) Settings() repositories.SettingsRepository     { return settingsRepo{s} }

// WithTransaction runs fn against a copy of the data and swaps it in on success.
// Other callers are blocked for the duration.
func (s *Store) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{st: s.st.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	if !user.HasAuthMethod() {
		return repositories.ErrNoAuthMethod
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.st.users {
		if user.Username != nil && existing.Username != nil && *existing.Username == *user.Username {
			return repositories.ErrDuplicate
		}
		if user.DiscordID != nil && existing.DiscordID != nil && *existing.DiscordID == *user.DiscordID {
			return repositories.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, ok := r.s.st.users[user.ID]; ok {
		return repositories.ErrDuplicate
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.s.st.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username != nil && *u.Username == username })
}

func (r userRepo) GetByDiscordID(ctx context.Context, discordID string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.DiscordID != nil && *u.DiscordID == discordID })
}

func (r userRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.st.users {
		if match(&u) {
			found := u
			return &found, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r userRepo) UpdateProfile(ctx context.Context, id string, update repositories.ProfileUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.st.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.Name = update.Name
	u.Email = update.Email
	u.AvatarURL = update.AvatarURL
	u.Roles = append([]string(nil), update.Roles...)
	r.s.st.users[id] = u
	return nil
}

func (r userRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.st.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.LastLogin = &at
	r.s.st.users[id] = u
	return nil
}

type progressRepo struct{ s *Store }

func (r progressRepo) Upsert(ctx context.Context, entry *models.ProgressEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := progressKey{entry.UserID, entry.CourseID, entry.VideoID}
	stored, ok := r.s.st.progress[key]
	if !ok {
		r.s.st.nextProgressID++
		stored = models.ProgressEntry{
			ID:       r.s.st.nextProgressID,
			UserID:   entry.UserID,
			CourseID: entry.CourseID,
			VideoID:  entry.VideoID,
		}
	}
	stored.SectionID = entry.SectionID
	stored.Completed = entry.Completed
	stored.WatchedAt = entry.WatchedAt
	r.s.st.progress[key] = stored
	*entry = stored
	return nil
}

func (r progressRepo) ListByCourse(ctx context.Context, userID string, courseID int) ([]models.ProgressEntry, error) {
	entries := r.collect(func(e models.ProgressEntry) bool {
		return e.UserID == userID && e.CourseID == courseID
	})
	return entries, nil
}

func (r progressRepo) ListByUser(ctx context.Context, userID string) ([]models.ProgressEntry, error) {
	return r.collect(func(e models.ProgressEntry) bool { return e.UserID == userID }), nil
}

func (r progressRepo) CountCompleted(ctx context.Context, userID string, courseID int) (int64, error) {
	entries := r.collect(func(e models.ProgressEntry) bool {
		return e.UserID == userID && e.CourseID == courseID && e.Completed
	})
	return int64(len(entries)), nil
}

func (r progressRepo) CountCompletedAll(ctx context.Context, userID string) (int64, error) {
	entries := r.collect(func(e models.ProgressEntry) bool { return e.UserID == userID && e.Completed })
	return int64(len(entries)), nil
}

// collect returns matching entries ordered by course id, then video id
func (r progressRepo) collect(match func(models.ProgressEntry) bool) []models.ProgressEntry {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.ProgressEntry{}
	for _, e := range r.s.st.progress {
		if match(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CourseID != out[j].CourseID {
			return out[i].CourseID < out[j].CourseID
		}
		return out[i].VideoID < out[j].VideoID
	})
	return out
}

type completionRepo struct{ s *Store }

func (r completionRepo) InsertIfAbsent(ctx context.Context, record *models.CompletionRecord) (*models.CompletionRecord, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := completionKey{record.UserID, record.CourseID}
	if existing, ok := r.s.st.completions[key]; ok {
		return &existing, false, nil
	}
	r.s.st.nextCompletionID++
	record.ID = r.s.st.nextCompletionID
	r.s.st.completions[key] = *record
	stored := *record
	return &stored, true, nil
}

func (r completionRepo) Get(ctx context.Context, userID string, courseID int) (*models.CompletionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	record, ok := r.s.st.completions[completionKey{userID, courseID}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &record, nil
}

func (r completionRepo) ListByUser(ctx context.Context, userID string) ([]models.CompletionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.CompletionRecord{}
	for _, rec := range r.s.st.completions {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

type settingsRepo struct{ s *Store }

func (r settingsRepo) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	settings, ok := r.s.st.settings[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &settings, nil
}

func (r settingsRepo) Upsert(ctx context.Context, settings *models.UserSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	settings.UpdatedAt = time.Now().UTC()
	r.s.st.settings[settings.UserID] = *settings
	return nil
}
