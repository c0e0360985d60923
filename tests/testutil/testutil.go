package testutil

import (
	"fmt"
	"os"
	"testing"

	"github.com/kendall-kelly/stitchwise-api/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// NewTestDB opens a fresh in-memory SQLite database with every table migrated.
// A single connection keeps the in-memory database shared between queries.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// CreateUser inserts a user with the given role. Tailors get an active profile.
func CreateUser(t *testing.T, db *gorm.DB, auth0ID string, role models.Role) models.User {
	t.Helper()

	user := models.User{
		Auth0ID: auth0ID,
		Name:    fmt.Sprintf("%s user", role),
		Email:   fmt.Sprintf("%s@example.com", sanitize(auth0ID)),
		Role:    role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	if role == models.RoleTailor {
		profile := models.TailorProfile{UserID: user.ID, Active: true}
		if err := db.Create(&profile).Error; err != nil {
			t.Fatalf("Failed to create tailor profile: %v", err)
		}
	}
	return user
}

func sanitize(auth0ID string) string {
	out := make([]rune, 0, len(auth0ID))
	for _, r := range auth0ID {
		if r == '|' {
			r = '.'
		}
		out = append(out, r)
	}
	return string(out)
}
