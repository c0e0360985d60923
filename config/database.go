package config

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteScheme = "sqlite://"

var DB *gorm.DB

// ConnectDatabase opens the database behind databaseURL.
// A sqlite:// URL selects a local SQLite file, anything else is PostgreSQL.
func ConnectDatabase(databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("database URL is required")
	}

	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var err error
	if strings.HasPrefix(databaseURL, sqliteScheme) {
		DB, err = gorm.Open(sqlite.Open(strings.TrimPrefix(databaseURL, sqliteScheme)), gormConfig)
	} else {
		DB, err = gorm.Open(postgres.Open(databaseURL), gormConfig)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// SetDB sets the database instance (primarily for testing)
func SetDB(db *gorm.DB) {
	DB = db
}
