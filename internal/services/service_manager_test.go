package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/staff-academy/course-platform/internal/auth"
	"github.com/staff-academy/course-platform/internal/events"
	"github.com/staff-academy/course-platform/internal/repositories/memory"
	"github.com/staff-academy/course-platform/internal/validator"
)

func TestServiceManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	publisher := events.NewMockEventPublisher(newTestLogger())
	sm := NewServiceManager(memory.NewStore(), Dependencies{
		Catalog:   newTestCatalog(t),
		Issuer:    auth.NewTokenIssuer(testSecret, time.Hour),
		Publisher: publisher,
	}, newTestLogger(), validator.New())

	if err := sm.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() before Initialize should fail")
	}
	if err := sm.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := sm.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}

	if sm.Auth().DiscordEnabled() {
		t.Error("Discord should be disabled without a client")
	}
	if len(sm.Course().List()) != 2 {
		t.Error("course service not wired to the catalog")
	}
	for name, svc := range map[string]interface{}{
		"identity": sm.Identity(), "progress": sm.Progress(), "settings": sm.Settings(),
		"user": sm.User(), "report": sm.Report(),
	} {
		if svc == nil {
			t.Errorf("%s service is nil", name)
		}
	}

	if err := sm.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := sm.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := sm.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() after Shutdown should fail")
	}
}

func TestServiceManager_RequiresDependencies(t *testing.T) {
	sm := NewServiceManager(memory.NewStore(), Dependencies{}, newTestLogger(), validator.New())
	if err := sm.Initialize(context.Background()); err == nil {
		t.Fatal("Initialize() without catalog should fail")
	}

	defer func() {
		if recover() == nil {
			t.Error("getter on an uninitialized manager should panic")
		}
	}()
	sm.Progress()
}

func TestServiceManager_ShutdownReportsPublisherError(t *testing.T) {
	sm := NewServiceManager(memory.NewStore(), Dependencies{
		Catalog:   newTestCatalog(t),
		Issuer:    auth.NewTokenIssuer(testSecret, time.Hour),
		Publisher: closeFailingPublisher{},
	}, newTestLogger(), validator.New())
	_ = sm.Initialize(context.Background())

	if err := sm.Shutdown(context.Background()); !errors.Is(err, errStorageDown) {
		t.Errorf("Shutdown() error = %v", err)
	}
}

type closeFailingPublisher struct{}

func (closeFailingPublisher) Publish(ctx context.Context, event *events.Event) error { return nil }
func (closeFailingPublisher) Close() error                                           { return errStorageDown }
