package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/staff-academy/course-platform/internal/auth"
	"github.com/staff-academy/course-platform/internal/config"
	"github.com/staff-academy/course-platform/internal/discord"
	"github.com/staff-academy/course-platform/internal/metrics"
	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/repositories"
	"github.com/staff-academy/course-platform/internal/validator"
)

// Login methods, used as metric labels
const (
	loginMethodPassword = "password"
	loginMethodDiscord  = "discord"
)

type authService struct {
	repo      repositories.Repository
	identity  IdentityService
	issuer    *auth.TokenIssuer
	discord   DiscordClient
	discordCf config.DiscordConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
	validator *validator.Validator
}

// NewAuthService wires local and Discord login. discordClient may be nil when
// Discord is not configured.
func NewAuthService(
	repo repositories.Repository,
	identity IdentityService,
	issuer *auth.TokenIssuer,
	discordClient DiscordClient,
	discordCfg config.DiscordConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
	validator *validator.Validator,
) AuthService {
	return &authService{
		repo:      repo,
		identity:  identity,
		issuer:    issuer,
		discord:   discordClient,
		discordCf: discordCfg,
		metrics:   m,
		logger:    logger,
		validator: validator,
	}
}

// ===== LOCAL LOGIN =====

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if errs := s.validator.GetBusinessValidator().ValidateLogin(req); len(errs) > 0 {
		return nil, errors.Join(ErrValidationFailed, errs)
	}

	user, err := s.verifyCredentials(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.metrics.RecordLogin(loginMethodPassword, metrics.OutcomeFailure)
			s.logger.InfoContext(ctx, "Rejected local login", "username", req.Username)
		}
		return nil, err
	}

	if err := s.repo.User().TouchLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.WarnContext(ctx, "Failed to update last login", "user_id", user.ID, "error", err)
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.metrics.RecordLogin(loginMethodPassword, metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "Local login succeeded", "user_id", user.ID)

	return &models.LoginResponse{
		Token: token,
		User: models.UserSummary{
			ID:       user.ID,
			Username: user.DisplayUsername(),
			Name:     user.Name,
		},
	}, nil
}

// verifyCredentials fails with ErrInvalidCredentials for an unknown user and
// for a wrong password, doing a hash comparison in both cases
func (s *authService) verifyCredentials(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.User().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			auth.CompareDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user.PasswordHash == nil || *user.PasswordHash == "" {
		auth.CompareDummy(password)
		return nil, ErrInvalidCredentials
	}

	if err := auth.CheckPassword(*user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.ErrorContext(ctx, "Stored password hash is unusable", "user_id", user.ID, "error", err)
		}
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ===== DISCORD LOGIN =====

func (s *authService) DiscordEnabled() bool {
	return s.discord != nil && s.discordCf.Enabled()
}

func (s *authService) DiscordAuthorizeURL() (string, error) {
	if !s.DiscordEnabled() {
		return "", ErrNotConfigured
	}
	return s.discord.AuthorizeURL(), nil
}

// DiscordCallback completes the code flow and returns a session token
func (s *authService) DiscordCallback(ctx context.Context, code, providerError string) (string, error) {
	token, err := s.discordCallback(ctx, code, providerError)
	if err != nil {
		s.metrics.RecordLogin(loginMethodDiscord, metrics.OutcomeFailure)
		return "", err
	}
	return token, nil
}

func (s *authService) discordCallback(ctx context.Context, code, providerError string) (string, error) {
	if !s.DiscordEnabled() {
		return "", ErrNotConfigured
	}
	if providerError != "" {
		s.logger.InfoContext(ctx, "Discord returned an error on callback", "error", providerError)
		return "", &ProviderError{Code: providerError}
	}
	if code == "" {
		return "", &ProviderError{Code: CodeNoCode}
	}

	token, err := s.discord.Exchange(ctx, code)
	if err != nil {
		return "", &ProviderError{Code: CodeTokenExchangeFailed, Detail: providerDetail(err), Err: err}
	}

	profile, err := s.discord.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		return "", &ProviderError{Code: CodeFetchUserFailed, Detail: providerDetail(err), Err: err}
	}

	roles, err := s.checkRoles(ctx, token.AccessToken, profile)
	if err != nil {
		return "", err
	}

	result, err := s.identity.ResolveDiscord(ctx, profile, roles)
	if err != nil {
		return "", fmt.Errorf("failed to resolve discord user: %w", err)
	}

	session, err := s.issuer.Issue(result.User)
	if err != nil {
		return "", fmt.Errorf("failed to issue session token: %w", err)
	}

	outcome := metrics.OutcomeSuccess
	if result.Ephemeral {
		outcome = metrics.OutcomeEphemeral
	}
	s.metrics.RecordLogin(loginMethodDiscord, outcome)
	s.logger.InfoContext(ctx, "Discord login succeeded",
		"user_id", result.User.ID,
		"discord_id", profile.ID,
		"created", result.Created,
		"ephemeral", result.Ephemeral)

	return session, nil
}

// checkRoles applies the guild role gate when configured. It returns the
// member's roles, or nil when they could not be read and the gate is lenient.
func (s *authService) checkRoles(ctx context.Context, accessToken string, profile *discord.Profile) ([]string, error) {
	if !s.discordCf.RoleGateEnabled() {
		return nil, nil
	}

	member, err := s.discord.FetchMember(ctx, accessToken, s.discordCf.GuildID)
	if err != nil {
		if s.discordCf.StrictRoleCheck {
			return nil, &ProviderError{Code: CodeFetchMemberFailed, Detail: providerDetail(err), Err: err}
		}
		s.logger.WarnContext(ctx, "Could not check guild membership, continuing without role check",
			"discord_id", profile.ID,
			"error", err)
		return nil, nil
	}

	if !member.HasAnyRole(s.discordCf.RequiredRoleID, s.discordCf.AdminRoleID) {
		s.logger.InfoContext(ctx, "Discord user lacks required role", "discord_id", profile.ID)
		return nil, ErrPermissionDenied
	}
	return member.Roles, nil
}

func providerDetail(err error) string {
	var apiErr *discord.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return err.Error()
}

// ===== SESSIONS =====

func (s *authService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return claims, nil
}
