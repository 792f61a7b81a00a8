package repository

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/trailpost/trailpost-backend/internal/models"
)

func TestProgressRepository_CreateAndGetForUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProgressRepository(db)

	user := createTestUser(t, db, "alice")
	badge := createTestBadge(t, db, "explorer", models.BadgeKindPoints, 50, `{}`)

	_, err := repo.GetForUpdate(db.DB, user.ID, badge.ID)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Expected ErrRecordNotFound before creation, got %v", err)
	}

	progress := &models.UserBadgeProgress{
		UserID:         user.ID,
		BadgeID:        badge.ID,
		RequiredPoints: badge.PointsAwarded,
		Status:         models.StatusInProgress,
	}
	if err := repo.Create(db.DB, progress); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	loaded, err := repo.GetForUpdate(db.DB, user.ID, badge.ID)
	if err != nil {
		t.Fatalf("GetForUpdate() failed: %v", err)
	}
	if loaded.Status != models.StatusInProgress {
		t.Errorf("Expected status in_progress, got %q", loaded.Status)
	}
	if loaded.RequiredPoints != 50 {
		t.Errorf("Expected required points 50, got %d", loaded.RequiredPoints)
	}
}

func TestProgressRepository_UniquePair(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProgressRepository(db)

	user := createTestUser(t, db, "bob")
	badge := createTestBadge(t, db, "explorer", models.BadgeKindPoints, 50, `{}`)

	first := &models.UserBadgeProgress{
		UserID:         user.ID,
		BadgeID:        badge.ID,
		RequiredPoints: 50,
		Status:         models.StatusInProgress,
	}
	if err := repo.Create(db.DB, first); err != nil {
		t.Fatalf("First Create() failed: %v", err)
	}

	second := &models.UserBadgeProgress{
		UserID:         user.ID,
		BadgeID:        badge.ID,
		RequiredPoints: 50,
		Status:         models.StatusInProgress,
	}
	if err := repo.Create(db.DB, second); err == nil {
		t.Error("Expected duplicate key error for second row on same (user, badge) pair")
	}
}

func TestProgressRepository_Save(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProgressRepository(db)

	user := createTestUser(t, db, "carol")
	badge := createTestBadge(t, db, "explorer", models.BadgeKindPoints, 50, `{}`)

	progress := &models.UserBadgeProgress{
		UserID:         user.ID,
		BadgeID:        badge.ID,
		RequiredPoints: 50,
		Status:         models.StatusInProgress,
	}
	if err := repo.Create(db.DB, progress); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	now := time.Now()
	progress.AccumulatedPoints = 50
	progress.Status = models.StatusEarned
	progress.EarnedAt = &now
	if err := repo.Save(db.DB, progress); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := repo.GetForUpdate(db.DB, user.ID, badge.ID)
	if err != nil {
		t.Fatalf("GetForUpdate() failed: %v", err)
	}
	if loaded.Status != models.StatusEarned {
		t.Errorf("Expected status earned, got %q", loaded.Status)
	}
	if loaded.EarnedAt == nil {
		t.Error("Expected EarnedAt to be set")
	}
}

func TestProgressRepository_ExpireInProgress(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProgressRepository(db)

	badge := createTestBadge(t, db, "seasonal", models.BadgeKindPoints, 50, `{}`)
	other := createTestBadge(t, db, "evergreen", models.BadgeKindPoints, 50, `{}`)

	userA := createTestUser(t, db, "dave")
	userB := createTestUser(t, db, "erin")
	userC := createTestUser(t, db, "frank")

	now := time.Now()
	rows := []*models.UserBadgeProgress{
		{UserID: userA.ID, BadgeID: badge.ID, RequiredPoints: 50, Status: models.StatusInProgress},
		{UserID: userB.ID, BadgeID: badge.ID, AccumulatedPoints: 50, RequiredPoints: 50, Status: models.StatusEarned, EarnedAt: &now},
		{UserID: userC.ID, BadgeID: other.ID, RequiredPoints: 50, Status: models.StatusInProgress},
	}
	for _, row := range rows {
		if err := repo.Create(db.DB, row); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}

	expired, err := repo.ExpireInProgress(badge.ID)
	if err != nil {
		t.Fatalf("ExpireInProgress() failed: %v", err)
	}
	if expired != 1 {
		t.Errorf("Expected 1 row expired, got %d", expired)
	}

	// Earned row untouched
	earned, err := repo.GetForUpdate(db.DB, userB.ID, badge.ID)
	if err != nil {
		t.Fatalf("GetForUpdate() failed: %v", err)
	}
	if earned.Status != models.StatusEarned {
		t.Errorf("Expected earned row to keep status, got %q", earned.Status)
	}

	// Other badge untouched
	untouched, err := repo.GetForUpdate(db.DB, userC.ID, other.ID)
	if err != nil {
		t.Fatalf("GetForUpdate() failed: %v", err)
	}
	if untouched.Status != models.StatusInProgress {
		t.Errorf("Expected other badge row to stay in_progress, got %q", untouched.Status)
	}
}

func TestProgressRepository_ListByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProgressRepository(db)

	user := createTestUser(t, db, "grace")
	badge1 := createTestBadge(t, db, "badge1", models.BadgeKindPoints, 50, `{}`)
	badge2 := createTestBadge(t, db, "badge2", models.BadgeKindPoints, 80, `{}`)

	for _, badgeID := range []uint{badge1.ID, badge2.ID} {
		err := repo.Create(db.DB, &models.UserBadgeProgress{
			UserID:         user.ID,
			BadgeID:        badgeID,
			RequiredPoints: 50,
			Status:         models.StatusInProgress,
		})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}

	rows, err := repo.ListByUser(user.ID)
	if err != nil {
		t.Fatalf("ListByUser() failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(rows))
	}
}
