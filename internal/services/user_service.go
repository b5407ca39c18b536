package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/staff-academy/course-platform/internal/auth"
	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/repositories"
)

var ErrUsernameTaken = errors.New("username already taken")

type userService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewUserService(repo repositories.Repository, logger *slog.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

func (s *userService) Profile(ctx context.Context, identity Identity) (*models.UserProfileResponse, error) {
	if identity.Ephemeral {
		resp := &models.UserProfileResponse{
			ID:        identity.UserID,
			Username:  identity.Username,
			Name:      identity.Name,
			Ephemeral: true,
		}
		if identity.DiscordID != "" {
			resp.DiscordID = &identity.DiscordID
		}
		return resp, nil
	}

	user, err := s.repo.User().GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return &models.UserProfileResponse{
		ID:        user.ID,
		Username:  user.DisplayUsername(),
		Name:      user.Name,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		DiscordID: user.DiscordID,
		CreatedAt: &user.CreatedAt,
		LastLogin: user.LastLogin,
	}, nil
}

// CreateLocalUser seeds a username/password account with default settings
func (s *userService) CreateLocalUser(ctx context.Context, username, password, name string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidationFailed)
	}
	if name == "" {
		name = username
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     &username,
		PasswordHash: &hash,
		Name:         name,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.User().Create(ctx, user); err != nil {
			return err
		}
		return tx.Settings().Upsert(ctx, models.DefaultUserSettings(user.ID))
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "Local user created", "user_id", user.ID, "username", username)
	return user, nil
}
