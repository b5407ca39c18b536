package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/staff-academy/course-platform/internal/cache"
	"github.com/staff-academy/course-platform/internal/repositories"
)

// SQLRepository implements repositories.Repository on gorm (postgres or sqlite)
type SQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	user       repositories.UserRepository
	progress   repositories.ProgressRepository
	completion repositories.CompletionRepository
	settings   repositories.SettingsRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
}

// NewSQLRepository creates the repository with all sub-repositories
func NewSQLRepository(config RepositoryConfig) *SQLRepository {
	return newSQLRepository(config.DB, config.RedisClient, cache.NewCacheManager(config.RedisClient))
}

func newSQLRepository(db *gorm.DB, client *redis.Client, cm *cache.CacheManager) *SQLRepository {
	return &SQLRepository{
		db:           db,
		redisClient:  client,
		cacheManager: cm,
		user:         NewUserSQL(db),
		progress:     NewProgressSQL(db),
		completion:   NewCompletionSQL(db, cm),
		settings:     NewSettingsSQL(db),
	}
}

func (r *SQLRepository) User() repositories.UserRepository {
	return r.user
}

func (r *SQLRepository) Progress() repositories.ProgressRepository {
	return r.progress
}

func (r *SQLRepository) Completion() repositories.CompletionRepository {
	return r.completion
}

func (r *SQLRepository) Settings() repositories.SettingsRepository {
	return r.settings
}

// WithTransaction executes fn with repositories bound to one database transaction
func (r *SQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newSQLRepository(tx, r.redisClient, r.cacheManager))
	})
}

// Ping checks the health of database and cache connections
func (r *SQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection. The Redis client is owned by the caller.
func (r *SQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   *SQLRepository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) *RepositoryManager {
	return &RepositoryManager{config: config}
}

// Initialize checks connectivity and builds the repository
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return errors.New("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	rm.repo = NewSQLRepository(rm.config)
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return errors.New("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}
