package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/staff-academy/course-platform/internal/auth"
	"github.com/staff-academy/course-platform/internal/catalog"
	"github.com/staff-academy/course-platform/internal/config"
	"github.com/staff-academy/course-platform/internal/discord"
	"github.com/staff-academy/course-platform/internal/events"
	"github.com/staff-academy/course-platform/internal/handlers"
	"github.com/staff-academy/course-platform/internal/metrics"
	"github.com/staff-academy/course-platform/internal/repositories"
	"github.com/staff-academy/course-platform/internal/repositories/memory"
	"github.com/staff-academy/course-platform/internal/repositories/sqlstore"
	"github.com/staff-academy/course-platform/internal/services"
	"github.com/staff-academy/course-platform/internal/utils"
	"github.com/staff-academy/course-platform/internal/validator"
	"github.com/staff-academy/course-platform/pkg"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := newLogger(cfg)
	logger := utils.NewSlogLogger(slogLogger)

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	repo, redisClient, err := openRepository(cfg, slogLogger)
	if err != nil {
		return err
	}

	ctx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()

	publisher, err := newPublisher(ctx, cfg, slogLogger)
	if err != nil {
		return err
	}

	m := metrics.New()

	deps := services.Dependencies{
		Catalog:       cat,
		Issuer:        auth.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL),
		Publisher:     publisher,
		Metrics:       m,
		DiscordConfig: cfg.Discord,
	}
	if cfg.Discord.Enabled() {
		deps.Discord = discord.NewClient(discord.Config{
			ClientID:     cfg.Discord.ClientID,
			ClientSecret: cfg.Discord.ClientSecret,
			RedirectURI:  cfg.Discord.RedirectURI,
			APIBaseURL:   cfg.Discord.APIBaseURL,
			Timeout:      cfg.Discord.HTTPTimeout,
		}, slogLogger)
	} else {
		logger.Warn("Discord login disabled, DISCORD_CLIENT_ID, DISCORD_CLIENT_SECRET and DISCORD_REDIRECT_URI are required")
	}

	serviceManager := services.NewServiceManager(repo, deps, slogLogger, validator.New())
	if err := serviceManager.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, handlers.MiddlewareConfig{
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     m,
	})
	handlers.NewHandlerManager(serviceManager, logger, handlers.RouterConfig{
		AppRedirectPath: cfg.AppRedirectPath,
		Metrics:         m,
	}).SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"db_driver", cfg.Database.Driver,
			"discord_enabled", cfg.Discord.Enabled())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error("Server failed", "error", err)
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	stopConsumers()

	// closes the publisher and the database
	if err := serviceManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
	return nil
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default()
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", cfg.CatalogPath, err)
	}
	return cat, nil
}

// openRepository builds the configured storage engine. The SQL engines are
// migrated on startup; Redis is optional and only fronts the SQL engines.
func openRepository(cfg *config.Config, logger *slog.Logger) (repositories.Repository, *redis.Client, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("Using the in-memory store, data is lost on restart")
		return memory.NewStore(), nil, nil
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := pkg.Migrate(db); err != nil {
		return nil, nil, err
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Failed to initialize Redis, continuing without cache", "error", err)
			redisClient = nil
		}
	}

	repoManager := sqlstore.NewRepositoryManager(sqlstore.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}
	return repoManager.GetRepository(), redisClient, nil
}

// newPublisher returns a Kafka publisher when brokers are configured, otherwise
// an in-process channel drained by a logging consumer
func newPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (events.EventPublisher, error) {
	if len(cfg.KafkaBrokers) > 0 {
		pub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to kafka: %w", err)
		}
		return pub, nil
	}

	pub, channel := events.NewInProcessPublisher(logger)
	go func() {
		if err := events.RunLogConsumer(ctx, channel, logger, events.Topics...); err != nil {
			logger.Error("Event consumer stopped", "error", err)
		}
	}()
	return pub, nil
}
