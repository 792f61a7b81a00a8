package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trailpost/trailpost-backend/internal/models"
)

// ProgressRepository handles user badge progress rows. Mutating methods
// take the caller's transaction handle: every read-modify-write on a
// (user, badge) pair happens inside a single awarder transaction.
type ProgressRepository struct {
	db *DB
}

// NewProgressRepository creates a new progress repository.
func NewProgressRepository(db *DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// GetForUpdate loads the progress row for a (user, badge) pair with a row
// lock, serializing concurrent awarders on the same pair. Returns
// gorm.ErrRecordNotFound when no row exists yet.
func (r *ProgressRepository) GetForUpdate(tx *gorm.DB, userID, badgeID uint) (*models.UserBadgeProgress, error) {
	var progress models.UserBadgeProgress
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// Create inserts a new progress row. The unique (user_id, badge_id) index
// turns a concurrent double-insert into a duplicate key error, which the
// awarder retries as a conflict.
func (r *ProgressRepository) Create(tx *gorm.DB, progress *models.UserBadgeProgress) error {
	return tx.Create(progress).Error
}

// Save persists changes to an existing progress row.
func (r *ProgressRepository) Save(tx *gorm.DB, progress *models.UserBadgeProgress) error {
	return tx.Save(progress).Error
}

// Exists reports whether a progress row exists for a (user, badge) pair.
func (r *ProgressRepository) Exists(tx *gorm.DB, userID, badgeID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.UserBadgeProgress{}).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUser retrieves all progress rows for a user. Read path only.
func (r *ProgressRepository) ListByUser(userID uint) ([]models.UserBadgeProgress, error) {
	var rows []models.UserBadgeProgress
	err := r.db.
		Where("user_id = ?", userID).
		Find(&rows).Error
	return rows, err
}

// ExpireInProgress transitions every in-progress row for a badge to
// expired. Rows are never deleted; the sweep only changes status.
func (r *ProgressRepository) ExpireInProgress(badgeID uint) (int64, error) {
	result := r.db.Model(&models.UserBadgeProgress{}).
		Where("badge_id = ? AND status = ?", badgeID, models.StatusInProgress).
		Update("status", models.StatusExpired)
	return result.RowsAffected, result.Error
}
