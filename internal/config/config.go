package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database engines
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	Database DatabaseConfig
	RedisURL string

	JWTSecret  string
	SessionTTL time.Duration

	Discord DiscordConfig

	KafkaBrokers    []string
	CatalogPath     string
	CORSOrigins     []string
	AppRedirectPath string
}

type DatabaseConfig struct {
	Driver     string
	URL        string
	SQLitePath string
}

// DiscordConfig holds the OAuth application and the optional guild role gate
type DiscordConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectURI     string
	GuildID         string
	RequiredRoleID  string
	AdminRoleID     string
	APIBaseURL      string
	HTTPTimeout     time.Duration
	StrictRoleCheck bool
}

// Enabled reports whether the OAuth flow can be started at all
func (d DiscordConfig) Enabled() bool {
	return d.ClientID != "" && d.ClientSecret != "" && d.RedirectURI != ""
}

// RoleGateEnabled reports whether membership must be checked after login
func (d DiscordConfig) RoleGateEnabled() bool {
	return d.GuildID != "" && d.RequiredRoleID != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

const devJWTSecret = "development-only-secret"

// LoadConfig reads .env (if present) and the process environment
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "courses.db")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("DISCORD_CLIENT_ID", "")
	v.SetDefault("DISCORD_CLIENT_SECRET", "")
	v.SetDefault("DISCORD_REDIRECT_URI", "")
	v.SetDefault("DISCORD_GUILD_ID", "")
	v.SetDefault("DISCORD_REQUIRED_ROLE_ID", "")
	v.SetDefault("DISCORD_ADMIN_ROLE_ID", "")
	v.SetDefault("DISCORD_API_BASE_URL", "https://discord.com/api")
	v.SetDefault("DISCORD_HTTP_TIMEOUT", "10s")
	v.SetDefault("DISCORD_STRICT_ROLE_CHECK", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("CATALOG_PATH", "")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("APP_REDIRECT_PATH", "/")
}

func fromViper(v *viper.Viper) (*Config, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    level,
		Database: DatabaseConfig{
			Driver:     strings.ToLower(v.GetString("DB_DRIVER")),
			URL:        v.GetString("DATABASE_URL"),
			SQLitePath: v.GetString("SQLITE_PATH"),
		},
		RedisURL:   v.GetString("REDIS_URL"),
		JWTSecret:  v.GetString("JWT_SECRET"),
		SessionTTL: v.GetDuration("SESSION_TTL"),
		Discord: DiscordConfig{
			ClientID:        v.GetString("DISCORD_CLIENT_ID"),
			ClientSecret:    v.GetString("DISCORD_CLIENT_SECRET"),
			RedirectURI:     v.GetString("DISCORD_REDIRECT_URI"),
			GuildID:         v.GetString("DISCORD_GUILD_ID"),
			RequiredRoleID:  v.GetString("DISCORD_REQUIRED_ROLE_ID"),
			AdminRoleID:     v.GetString("DISCORD_ADMIN_ROLE_ID"),
			APIBaseURL:      strings.TrimRight(v.GetString("DISCORD_API_BASE_URL"), "/"),
			HTTPTimeout:     v.GetDuration("DISCORD_HTTP_TIMEOUT"),
			StrictRoleCheck: v.GetBool("DISCORD_STRICT_ROLE_CHECK"),
		},
		KafkaBrokers:    splitList(v.GetString("KAFKA_BROKERS")),
		CatalogPath:     v.GetString("CATALOG_PATH"),
		CORSOrigins:     splitList(v.GetString("CORS_ORIGINS")),
		AppRedirectPath: v.GetString("APP_REDIRECT_PATH"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements and fills development fallbacks
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	case DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		c.JWTSecret = devJWTSecret
	}

	if c.SessionTTL < 0 {
		return errors.New("SESSION_TTL must not be negative")
	}
	if c.Discord.HTTPTimeout <= 0 {
		return errors.New("DISCORD_HTTP_TIMEOUT must be positive")
	}
	if c.AppRedirectPath == "" {
		c.AppRedirectPath = "/"
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
