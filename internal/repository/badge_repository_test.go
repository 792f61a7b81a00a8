package repository

import (
	"testing"
	"time"

	"github.com/trailpost/trailpost-backend/internal/models"
)

func TestBadgeRepository_GetActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	now := time.Now()

	createTestBadge(t, db, "always_on", models.BadgeKindPoints, 50, `{"like":{"pointsPerAction":10}}`)

	inactive := createTestBadge(t, db, "switched_off", models.BadgeKindPoints, 50, `{}`)
	if err := db.Model(inactive).Update("active", false).Error; err != nil {
		t.Fatalf("Failed to deactivate badge: %v", err)
	}

	windowed := createTestBadge(t, db, "summer_event", models.BadgeKindSpecial, 100, `{"checkin":{"firstTime":true}}`)
	if err := db.Model(windowed).Updates(map[string]interface{}{
		"start_date": timePtr(now.Add(-24 * time.Hour)),
		"end_date":   timePtr(now.Add(24 * time.Hour)),
	}).Error; err != nil {
		t.Fatalf("Failed to set validity window: %v", err)
	}

	lapsed := createTestBadge(t, db, "spring_event", models.BadgeKindSpecial, 100, `{"checkin":{"firstTime":true}}`)
	if err := db.Model(lapsed).Updates(map[string]interface{}{
		"start_date": timePtr(now.Add(-48 * time.Hour)),
		"end_date":   timePtr(now.Add(-24 * time.Hour)),
	}).Error; err != nil {
		t.Fatalf("Failed to set validity window: %v", err)
	}

	active, err := repo.GetActive(now)
	if err != nil {
		t.Fatalf("GetActive() failed: %v", err)
	}

	if len(active) != 2 {
		t.Fatalf("Expected 2 active badges, got %d", len(active))
	}
	names := map[string]bool{}
	for _, b := range active {
		names[b.Name] = true
	}
	if !names["always_on"] || !names["summer_event"] {
		t.Errorf("Unexpected active badge set: %v", names)
	}
}

func TestBadgeRepository_GetLapsed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	now := time.Now()

	createTestBadge(t, db, "open_ended", models.BadgeKindPoints, 50, `{}`)

	lapsed := createTestBadge(t, db, "over", models.BadgeKindPoints, 50, `{}`)
	if err := db.Model(lapsed).Update("end_date", timePtr(now.Add(-time.Hour))).Error; err != nil {
		t.Fatalf("Failed to set end date: %v", err)
	}

	badges, err := repo.GetLapsed(now)
	if err != nil {
		t.Fatalf("GetLapsed() failed: %v", err)
	}
	if len(badges) != 1 || badges[0].Name != "over" {
		t.Fatalf("Expected only the lapsed badge, got %d", len(badges))
	}
}

func TestBadgeRepository_UniqueName(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	createTestBadge(t, db, "dup", models.BadgeKindPoints, 10, `{}`)

	err := repo.Create(&models.Badge{
		Name:          "dup",
		Kind:          models.BadgeKindPoints,
		PointsAwarded: 10,
		Active:        true,
	})
	if err == nil {
		t.Error("Expected error when creating badge with duplicate name")
	}
}
