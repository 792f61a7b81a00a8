package repository

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/trailpost/trailpost-backend/internal/models"
)

var testUserSeq int

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// A shared in-memory database exists per connection; restrict the pool
	// to one so every session sees the same data.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Badge{},
		&models.UserBadgeProgress{},
		&models.PointLedgerEntry{},
	)
	if err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	return &DB{db}
}

// createTestUser creates a test user in the database.
func createTestUser(t *testing.T, db *DB, username string) *models.User {
	t.Helper()

	testUserSeq++
	user := &models.User{
		Username: fmt.Sprintf("%s-%d", username, testUserSeq),
		Email:    fmt.Sprintf("%s-%d@example.com", username, testUserSeq),
		FullName: username,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// createTestBadge creates a test badge in the database.
func createTestBadge(t *testing.T, db *DB, name string, kind models.BadgeKind, points int, condition string) *models.Badge {
	t.Helper()

	badge := &models.Badge{
		Name:          name,
		Description:   "Test badge",
		Icon:          "🏆",
		Kind:          kind,
		PointsAwarded: points,
		Condition:     json.RawMessage(condition),
		Active:        true,
	}
	if err := db.Create(badge).Error; err != nil {
		t.Fatalf("Failed to create test badge: %v", err)
	}
	return badge
}

func timePtr(t time.Time) *time.Time {
	return &t
}
