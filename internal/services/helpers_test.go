package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/staff-academy/course-platform/internal/catalog"
	"github.com/staff-academy/course-platform/internal/discord"
	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/repositories"
	"github.com/staff-academy/course-platform/internal/repositories/memory"
)

var errStorageDown = errors.New("connection refused")

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestCatalog has one course of two sections with two videos each, and a
// second single-video course
func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Course{
		{
			ID:   1,
			Name: "Basics",
			Sections: []catalog.Section{
				{ID: 1, Title: "Intro", Videos: []catalog.Video{{ID: 1, Title: "Welcome"}, {ID: 2, Title: "Setup"}}},
				{ID: 2, Title: "Core", Videos: []catalog.Video{{ID: 3, Title: "Tickets"}, {ID: 4, Title: "Escalation"}}},
			},
		},
		{
			ID:       2,
			Name:     "Advanced",
			Sections: []catalog.Section{{ID: 3, Title: "Only", Videos: []catalog.Video{{ID: 5, Title: "Deep dive"}}}},
		},
	})
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return cat
}

// faultyRepository wraps the memory store and injects storage failures
type faultyRepository struct {
	*memory.Store
	lookupErr error
	txErr     error
	touchErr  error
}

func (r *faultyRepository) User() repositories.UserRepository {
	return &faultyUsers{UserRepository: r.Store.User(), repo: r}
}

func (r *faultyRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if r.txErr != nil {
		return r.txErr
	}
	return r.Store.WithTransaction(ctx, fn)
}

type faultyUsers struct {
	repositories.UserRepository
	repo *faultyRepository
}

func (u *faultyUsers) GetByDiscordID(ctx context.Context, id string) (*models.User, error) {
	if u.repo.lookupErr != nil {
		return nil, u.repo.lookupErr
	}
	return u.UserRepository.GetByDiscordID(ctx, id)
}

func (u *faultyUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if u.repo.lookupErr != nil {
		return nil, u.repo.lookupErr
	}
	return u.UserRepository.GetByUsername(ctx, username)
}

func (u *faultyUsers) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if u.repo.touchErr != nil {
		return u.repo.touchErr
	}
	return u.UserRepository.TouchLastLogin(ctx, id, at)
}

func (u *faultyUsers) UpdateProfile(ctx context.Context, id string, update repositories.ProfileUpdate) error {
	if u.repo.touchErr != nil {
		return u.repo.touchErr
	}
	return u.UserRepository.UpdateProfile(ctx, id, update)
}

// mockDiscordClient is a scripted Discord API
type mockDiscordClient struct {
	mu sync.Mutex

	exchangeErr error
	profile     *discord.Profile
	profileErr  error
	member      *discord.Member
	memberErr   error

	exchangeCalls int
	memberCalls   int
}

func (m *mockDiscordClient) AuthorizeURL() string {
	return "https://discord.test/oauth2/authorize?client_id=cid"
}

func (m *mockDiscordClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchangeCalls++
	if m.exchangeErr != nil {
		return nil, m.exchangeErr
	}
	return &oauth2.Token{AccessToken: "at-" + code, TokenType: "Bearer"}, nil
}

func (m *mockDiscordClient) FetchProfile(ctx context.Context, accessToken string) (*discord.Profile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	p := *m.profile
	return &p, nil
}

func (m *mockDiscordClient) FetchMember(ctx context.Context, accessToken, guildID string) (*discord.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memberCalls++
	if m.memberErr != nil {
		return nil, m.memberErr
	}
	return m.member, nil
}
