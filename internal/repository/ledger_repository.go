package repository

import (
	"gorm.io/gorm"

	"github.com/trailpost/trailpost-backend/internal/models"
)

// LedgerRepository handles the append-only point ledger. Entries are never
// updated or deleted; the per-action count doubles as the idempotency check.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append inserts a ledger entry inside the caller's transaction.
func (r *LedgerRepository) Append(tx *gorm.DB, entry *models.PointLedgerEntry) error {
	return tx.Create(entry).Error
}

// CountByAction counts prior occurrences of an action for a (user, badge)
// pair inside the caller's transaction.
func (r *LedgerRepository) CountByAction(tx *gorm.DB, userID, badgeID uint, action string) (int64, error) {
	var count int64
	err := tx.Model(&models.PointLedgerEntry{}).
		Where("user_id = ? AND badge_id = ? AND action = ?", userID, badgeID, action).
		Count(&count).Error
	return count, err
}

// ListByUser retrieves a page of a user's ledger entries, newest first,
// along with the total entry count.
func (r *LedgerRepository) ListByUser(userID uint, page, limit int) ([]models.PointLedgerEntry, int64, error) {
	var total int64
	err := r.db.Model(&models.PointLedgerEntry{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var entries []models.PointLedgerEntry
	err = r.db.
		Where("user_id = ?", userID).
		Preload("Badge").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	return entries, total, err
}

// CountByUser returns the total number of ledger entries for a user.
func (r *LedgerRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.PointLedgerEntry{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
