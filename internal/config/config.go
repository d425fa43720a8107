// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Store         StoreConfig
	Auth          AuthConfig
	App           AppConfig
	Notifications NotificationsConfig
	Log           LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string
	ReadTimeout     int // seconds
	WriteTimeout    int // seconds
	IdleTimeout     int // seconds
	ShutdownTimeout int // seconds
}

// DatabaseConfig holds relational database settings.
// Driver is "postgres" or "sqlite"; SQLitePath is only used by the latter.
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
}

// StoreConfig selects the document store backend for settings and preferences.
type StoreConfig struct {
	Backend           string // "gorm" or "firestore"
	FirestoreProject  string
	FirestoreDatabase string
	Tenant            string
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	// SessionTTL is the longest a token stays valid; unread counters idle
	// for longer are dropped.
	SessionTTL time.Duration
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool
	Migrations bool
	RoleTTL    time.Duration
}

// NotificationsConfig holds inbox refresh settings.
type NotificationsConfig struct {
	RefreshInterval time.Duration
	PageSize        int
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  slog.Level
	Format string // "json" or "text"
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:    getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:     getEnvInt("SERVER_IDLE_TIMEOUT", 60),
			ShutdownTimeout: getEnvInt("SERVER_SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "church"),
			Password:   getEnv("DB_PASSWORD", "church123"),
			DBName:     getEnv("DB_NAME", "church"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "church.db"),
		},
		Store: StoreConfig{
			Backend:           getEnv("STORE_BACKEND", "gorm"),
			FirestoreProject:  getEnv("FIRESTORE_PROJECT", ""),
			FirestoreDatabase: getEnv("FIRESTORE_DATABASE", "(default)"),
			Tenant:            getEnv("TENANT_ID", "church"),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			Issuer:     getEnv("JWT_ISSUER", "go-church"),
			SessionTTL: getEnvDuration("JWT_SESSION_TTL", 12*time.Hour),
		},
		App: AppConfig{
			Dev:        getEnvBool("DEV", true),
			Migrations: getEnvBool("MIGRATIONS", true),
			RoleTTL:    getEnvDuration("ROLE_CACHE_TTL", 5*time.Minute),
		},
		Notifications: NotificationsConfig{
			RefreshInterval: getEnvDuration("NOTIFICATIONS_REFRESH_INTERVAL", 60*time.Second),
			PageSize:        getEnvInt("NOTIFICATIONS_PAGE_SIZE", 50),
		},
		Log: LogConfig{
			Level:  parseLogLevel(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}
}

// Validate reports settings that would make the server unusable.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", c.Database.Driver))
	}
	switch c.Store.Backend {
	case "gorm":
	case "firestore":
		if c.Store.FirestoreProject == "" {
			errs = append(errs, errors.New("FIRESTORE_PROJECT: required when STORE_BACKEND=firestore"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND: unsupported backend %q", c.Store.Backend))
	}
	if c.Auth.JWTSecret == "" && !c.App.Dev {
		errs = append(errs, errors.New("JWT_SECRET: required outside dev mode"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("JWT_SESSION_TTL: must be positive"))
	}
	if c.Notifications.RefreshInterval < time.Second {
		errs = append(errs, errors.New("NOTIFICATIONS_REFRESH_INTERVAL: must be at least 1s"))
	}
	return errors.Join(errs...)
}

// NewLogger builds the application logger. A nil writer means stdout.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvDuration parses values like "60s" or "5m"; invalid values yield the default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
