package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/repositories"
	"github.com/staff-academy/course-platform/internal/validator"
)

type settingsService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewSettingsService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) SettingsService {
	return &settingsService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// Get returns stored settings, or the defaults when none were saved yet
func (s *settingsService) Get(ctx context.Context, identity Identity) (*models.UserSettings, error) {
	if identity.Ephemeral {
		return models.DefaultUserSettings(identity.UserID), nil
	}
	return loadSettings(ctx, s.repo, identity.UserID)
}

// Update applies the non-nil fields of req on top of the current settings
func (s *settingsService) Update(ctx context.Context, identity Identity, req *models.SettingsUpdateRequest) (*models.UserSettings, error) {
	if errs := s.validator.GetBusinessValidator().ValidateSettingsUpdate(req); len(errs) > 0 {
		return nil, errors.Join(ErrValidationFailed, errs)
	}
	if identity.Ephemeral {
		return nil, ErrPersistenceUnavailable
	}

	var updated *models.UserSettings
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		current, err := loadSettings(ctx, tx, identity.UserID)
		if err != nil {
			return err
		}
		if req.Theme != nil {
			current.Theme = *req.Theme
		}
		if req.NotificationsEnabled != nil {
			current.NotificationsEnabled = *req.NotificationsEnabled
		}
		if req.EmailNotifications != nil {
			current.EmailNotifications = *req.EmailNotifications
		}
		if err := tx.Settings().Upsert(ctx, current); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Settings updated", "user_id", identity.UserID)
	return updated, nil
}

func loadSettings(ctx context.Context, repo repositories.Repository, userID string) (*models.UserSettings, error) {
	settings, err := repo.Settings().Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.DefaultUserSettings(userID), nil
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}
