package db

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/diewo77/go-church/internal/config"
	"github.com/diewo77/go-church/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured database, retrying postgres while it starts.
func Connect(cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if cfg.Driver == "sqlite" {
		db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return db, nil
	}

	var (
		db  *gorm.DB
		err error
	)
	for attempt := 1; attempt <= 5; attempt++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gcfg)
		if err == nil {
			return db, nil
		}
		log.Warn("database connection failed, retrying",
			"attempt", attempt, "host", cfg.Host, "dbname", cfg.DBName, "error", err)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("connect postgres: %w", err)
}

// Migrate runs AutoMigrate for all models.
// Call this at application startup or as part of a migration step.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Accounts & authorization
		&models.User{},
		&models.Role{},
		&models.Permission{},
		// Documents (settings, preferences)
		&models.Document{},
		// Notifications
		&models.Notification{},
	)
}

// Seed initializes the database with required seed data.
// Should be called after Migrate.
func Seed(db *gorm.DB) error {
	return SeedRoles(db)
}
