package services

import (
	"context"
	"io"

	"golang.org/x/oauth2"

	"github.com/staff-academy/course-platform/internal/auth"
	"github.com/staff-academy/course-platform/internal/catalog"
	"github.com/staff-academy/course-platform/internal/discord"
	"github.com/staff-academy/course-platform/internal/models"
)

// Identity is the authenticated caller of a request, taken from the session token
type Identity struct {
	UserID    string
	Username  string
	Name      string
	DiscordID string
	Ephemeral bool
}

func IdentityFromClaims(claims *auth.Claims) Identity {
	return Identity{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Name:      claims.Name,
		DiscordID: claims.DiscordID,
		Ephemeral: claims.Ephemeral,
	}
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	// Local credentials
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)

	// Discord OAuth
	DiscordEnabled() bool
	DiscordAuthorizeURL() (string, error)
	DiscordCallback(ctx context.Context, code, providerError string) (string, error)

	// Session tokens
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// ResolveResult is the outcome of mapping a Discord profile to a user
type ResolveResult struct {
	User      *models.User
	Created   bool
	Ephemeral bool
}

type IdentityService interface {
	// ResolveDiscord finds or creates the user for profile. When storage is
	// unusable it returns a temporary user instead of failing.
	ResolveDiscord(ctx context.Context, profile *discord.Profile, roles []string) (*ResolveResult, error)
}

type ProgressService interface {
	RecordWatched(ctx context.Context, identity Identity, req *models.WatchVideo) (*models.WatchVideoResponse, error)
	GetProgress(ctx context.Context, identity Identity, courseID int) ([]models.ProgressEntry, error)
	GetCompletion(ctx context.Context, identity Identity, courseID int) (*models.CompletionStatusResponse, error)
	MarkCompleted(ctx context.Context, identity Identity, courseID int) (*models.CompletionStatusResponse, error)
	GetLevel(ctx context.Context, identity Identity) (*models.LevelResponse, error)
	CourseUnlocks(ctx context.Context, identity Identity, courseID int) (*models.CourseUnlocksResponse, error)
}

type SettingsService interface {
	Get(ctx context.Context, identity Identity) (*models.UserSettings, error)
	Update(ctx context.Context, identity Identity, req *models.SettingsUpdateRequest) (*models.UserSettings, error)
}

type UserService interface {
	Profile(ctx context.Context, identity Identity) (*models.UserProfileResponse, error)
	CreateLocalUser(ctx context.Context, username, password, name string) (*models.User, error)
}

type CourseService interface {
	List() []catalog.CourseSummary
	Get(courseID int) (*catalog.Course, error)
}

type ReportService interface {
	// ExportProgress writes an xlsx workbook of the caller's progress to w
	ExportProgress(ctx context.Context, identity Identity, w io.Writer) error
}

// DiscordClient is the subset of the Discord API the login flow needs
type DiscordClient interface {
	AuthorizeURL() string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, accessToken string) (*discord.Profile, error)
	FetchMember(ctx context.Context, accessToken, guildID string) (*discord.Member, error)
}

// ServiceManager owns every service and their shared dependencies
type ServiceManager interface {
	Auth() AuthService
	Identity() IdentityService
	Progress() ProgressService
	Settings() SettingsService
	User() UserService
	Course() CourseService
	Report() ReportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
