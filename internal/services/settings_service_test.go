package services

import (
	"context"
	"errors"
	"testing"

	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/repositories/memory"
	"github.com/staff-academy/course-platform/internal/validator"
)

func TestSettingsService_GetDefaults(t *testing.T) {
	svc := NewSettingsService(memory.NewStore(), newTestLogger(), validator.New())

	for name, identity := range map[string]Identity{
		"no stored row": {UserID: "u-1"},
		"temporary":     {UserID: "u-2", Ephemeral: true},
	} {
		settings, err := svc.Get(context.Background(), identity)
		if err != nil {
			t.Fatalf("%s: Get() error = %v", name, err)
		}
		if settings.Theme != models.ThemeDark || !settings.NotificationsEnabled || settings.EmailNotifications {
			t.Errorf("%s: Get() = %+v, want defaults", name, settings)
		}
	}
}

func TestSettingsService_PartialUpdate(t *testing.T) {
	svc := NewSettingsService(memory.NewStore(), newTestLogger(), validator.New())
	ctx := context.Background()
	user := Identity{UserID: "u-1"}

	light := models.ThemeLight
	if _, err := svc.Update(ctx, user, &models.SettingsUpdateRequest{Theme: &light}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	off := false
	updated, err := svc.Update(ctx, user, &models.SettingsUpdateRequest{NotificationsEnabled: &off})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Theme != models.ThemeLight || updated.NotificationsEnabled {
		t.Errorf("Update() = %+v, earlier fields must be kept", updated)
	}

	stored, _ := svc.Get(ctx, user)
	if stored.Theme != models.ThemeLight || stored.NotificationsEnabled || stored.EmailNotifications {
		t.Errorf("Get() = %+v", stored)
	}
}

func TestSettingsService_UpdateRejections(t *testing.T) {
	svc := NewSettingsService(memory.NewStore(), newTestLogger(), validator.New())
	ctx := context.Background()

	purple := "purple"
	if _, err := svc.Update(ctx, Identity{UserID: "u-1"}, &models.SettingsUpdateRequest{Theme: &purple}); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("Update() invalid theme error = %v", err)
	}

	light := models.ThemeLight
	if _, err := svc.Update(ctx, Identity{UserID: "u-2", Ephemeral: true}, &models.SettingsUpdateRequest{Theme: &light}); !errors.Is(err, ErrPersistenceUnavailable) {
		t.Errorf("Update() temporary identity error = %v", err)
	}

	repo := &faultyRepository{Store: memory.NewStore(), txErr: errStorageDown}
	failing := NewSettingsService(repo, newTestLogger(), validator.New())
	if _, err := failing.Update(ctx, Identity{UserID: "u-3"}, &models.SettingsUpdateRequest{Theme: &light}); !errors.Is(err, errStorageDown) {
		t.Errorf("Update() storage error = %v", err)
	}
}
