package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/staff-academy/course-platform/internal/discord"
	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/repositories"
)

// Namespace for ids of temporary Discord users, so the same account always
// maps to the same temporary id
var ephemeralNamespace = uuid.MustParse("4f1c2d0e-8a57-4b1e-9d8a-6c0b7f3e2a91")

type identityService struct {
	repo   repositories.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewIdentityService(repo repositories.Repository, logger *slog.Logger) IdentityService {
	return &identityService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *identityService) ResolveDiscord(ctx context.Context, profile *discord.Profile, roles []string) (*ResolveResult, error) {
	if profile == nil || profile.ID == "" {
		return nil, errors.New("discord profile has no id")
	}

	existing, err := s.repo.User().GetByDiscordID(ctx, profile.ID)
	switch {
	case err == nil:
		s.refresh(ctx, existing, profile, roles)
		return &ResolveResult{User: existing}, nil

	case errors.Is(err, repositories.ErrNotFound):
		created, createErr := s.createWithFallbacks(ctx, profile, roles)
		if createErr == nil {
			return created, nil
		}
		err = createErr
	}

	s.logger.WarnContext(ctx, "User storage unavailable, using temporary identity",
		"discord_id", profile.ID,
		"error", err)
	return &ResolveResult{User: s.ephemeralUser(profile, roles), Ephemeral: true}, nil
}

// createWithFallbacks creates the user, recovering from a concurrent first
// login of the same account and from a username already held by someone else
func (s *identityService) createWithFallbacks(ctx context.Context, profile *discord.Profile, roles []string) (*ResolveResult, error) {
	user, err := s.create(ctx, profile, roles, true)
	if err == nil {
		return &ResolveResult{User: user, Created: true}, nil
	}
	if !errors.Is(err, repositories.ErrDuplicate) {
		return nil, err
	}

	if existing, getErr := s.repo.User().GetByDiscordID(ctx, profile.ID); getErr == nil {
		s.refresh(ctx, existing, profile, roles)
		return &ResolveResult{User: existing}, nil
	}

	s.logger.InfoContext(ctx, "Discord username already taken, creating user without username",
		"discord_id", profile.ID,
		"username", profile.Username)
	user, err = s.create(ctx, profile, roles, false)
	if err != nil {
		return nil, err
	}
	return &ResolveResult{User: user, Created: true}, nil
}

func (s *identityService) create(ctx context.Context, profile *discord.Profile, roles []string, withUsername bool) (*models.User, error) {
	now := s.now()
	discordID := profile.ID
	user := &models.User{
		Name:      profile.DisplayName(),
		Email:     optional(profile.Email),
		DiscordID: &discordID,
		AvatarURL: optional(profile.AvatarURL()),
		Roles:     roles,
		CreatedAt: now,
		LastLogin: &now,
	}
	if withUsername {
		user.Username = optional(profile.Username)
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.User().Create(ctx, user); err != nil {
			return err
		}
		return tx.Settings().Upsert(ctx, models.DefaultUserSettings(user.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create discord user: %w", err)
	}

	s.logger.InfoContext(ctx, "Created user from discord login", "user_id", user.ID, "discord_id", discordID)
	return user, nil
}

// refresh copies provider fields onto user. Storage failures are logged and ignored.
func (s *identityService) refresh(ctx context.Context, user *models.User, profile *discord.Profile, roles []string) {
	update := repositories.ProfileUpdate{
		Name:      profile.DisplayName(),
		Email:     optional(profile.Email),
		AvatarURL: optional(profile.AvatarURL()),
		Roles:     roles,
	}
	if roles == nil {
		update.Roles = user.Roles
	}

	if err := s.repo.User().UpdateProfile(ctx, user.ID, update); err != nil {
		s.logger.WarnContext(ctx, "Failed to refresh discord profile", "user_id", user.ID, "error", err)
	} else {
		user.Name = update.Name
		user.Email = update.Email
		user.AvatarURL = update.AvatarURL
		user.Roles = update.Roles
	}

	now := s.now()
	if err := s.repo.User().TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.WarnContext(ctx, "Failed to update last login", "user_id", user.ID, "error", err)
		return
	}
	user.LastLogin = &now
}

func (s *identityService) ephemeralUser(profile *discord.Profile, roles []string) *models.User {
	discordID := profile.ID
	now := s.now()
	return &models.User{
		ID:        EphemeralUserID(profile.ID),
		Username:  optional(profile.Username),
		Name:      profile.DisplayName(),
		Email:     optional(profile.Email),
		DiscordID: &discordID,
		AvatarURL: optional(profile.AvatarURL()),
		Roles:     roles,
		CreatedAt: now,
		LastLogin: &now,
		Ephemeral: true,
	}
}

// EphemeralUserID derives the temporary user id for a Discord account
func EphemeralUserID(discordID string) string {
	return uuid.NewSHA1(ephemeralNamespace, []byte("discord:"+discordID)).String()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
