package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/staff-academy/course-platform/internal/auth"
	"github.com/staff-academy/course-platform/internal/catalog"
	"github.com/staff-academy/course-platform/internal/config"
	"github.com/staff-academy/course-platform/internal/events"
	"github.com/staff-academy/course-platform/internal/metrics"
	"github.com/staff-academy/course-platform/internal/repositories"
	"github.com/staff-academy/course-platform/internal/validator"
)

// Dependencies are the collaborators shared by the services
type Dependencies struct {
	Catalog   *catalog.Catalog
	Issuer    *auth.TokenIssuer
	Publisher events.EventPublisher
	Metrics   *metrics.Metrics

	// Discord is nil when the OAuth application is not configured
	Discord       DiscordClient
	DiscordConfig config.DiscordConfig

	HealthTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	deps      Dependencies
	logger    *slog.Logger
	validator *validator.Validator

	// Service instances
	authService     AuthService
	identityService IdentityService
	progressService ProgressService
	settingsService SettingsService
	userService     UserService
	courseService   CourseService
	reportService   ReportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(repo repositories.Repository, deps Dependencies, logger *slog.Logger, validator *validator.Validator) ServiceManager {
	if deps.HealthTimeout <= 0 {
		deps.HealthTimeout = 5 * time.Second
	}
	return &serviceManager{
		repo:      repo,
		deps:      deps,
		logger:    logger,
		validator: validator,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if sm.deps.Catalog == nil || sm.deps.Issuer == nil {
		return errors.New("catalog and token issuer are required")
	}

	sm.identityService = NewIdentityService(sm.repo, sm.logger)
	sm.authService = NewAuthService(sm.repo, sm.identityService, sm.deps.Issuer, sm.deps.Discord, sm.deps.DiscordConfig, sm.deps.Metrics, sm.logger, sm.validator)
	sm.progressService = NewProgressService(sm.repo, sm.deps.Catalog, sm.deps.Publisher, sm.deps.Metrics, sm.logger, sm.validator)
	sm.settingsService = NewSettingsService(sm.repo, sm.logger, sm.validator)
	sm.userService = NewUserService(sm.repo, sm.logger)
	sm.courseService = NewCourseService(sm.deps.Catalog)
	sm.reportService = NewReportService(sm.repo, sm.deps.Catalog, sm.logger)

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully",
		"discord_enabled", sm.authService.DiscordEnabled(),
		"courses", len(sm.deps.Catalog.Courses()))

	return nil
}

// Service getters
func (sm *serviceManager) Auth() AuthService {
	sm.mustBeInitialized()
	return sm.authService
}

func (sm *serviceManager) Identity() IdentityService {
	sm.mustBeInitialized()
	return sm.identityService
}

func (sm *serviceManager) Progress() ProgressService {
	sm.mustBeInitialized()
	return sm.progressService
}

func (sm *serviceManager) Settings() SettingsService {
	sm.mustBeInitialized()
	return sm.settingsService
}

func (sm *serviceManager) User() UserService {
	sm.mustBeInitialized()
	return sm.userService
}

func (sm *serviceManager) Course() CourseService {
	sm.mustBeInitialized()
	return sm.courseService
}

func (sm *serviceManager) Report() ReportService {
	sm.mustBeInitialized()
	return sm.reportService
}

func (sm *serviceManager) mustBeInitialized() {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	ctx, cancel := context.WithTimeout(ctx, sm.deps.HealthTimeout)
	defer cancel()

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

// Shutdown closes the event publisher and the storage engine
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	var errs []error
	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
			errs = append(errs, err)
		}
	}
	if err := sm.repo.Close(); err != nil {
		sm.logger.Error("Failed to close repository", "error", err)
		errs = append(errs, err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return errors.Join(errs...)
}
