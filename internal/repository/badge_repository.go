package repository

import (
	"time"

	"github.com/trailpost/trailpost-backend/internal/models"
)

// BadgeRepository handles badge catalog database operations. The award
// engine only reads from it; Create exists for seeding and admin tooling.
type BadgeRepository struct {
	db *DB
}

// NewBadgeRepository creates a new badge repository.
func NewBadgeRepository(db *DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// Create creates a new badge in the database.
func (r *BadgeRepository) Create(badge *models.Badge) error {
	return r.db.Create(badge).Error
}

// GetByID retrieves a badge by its ID.
func (r *BadgeRepository) GetByID(id uint) (*models.Badge, error) {
	var badge models.Badge
	err := r.db.First(&badge, id).Error
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

// GetAll retrieves all badges from the database.
func (r *BadgeRepository) GetAll() ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.Order("created_at ASC").Find(&badges).Error
	return badges, err
}

// GetActive retrieves the badges that are active and whose validity window
// contains now. The window is [start_date, end_date); a NULL bound is open.
func (r *BadgeRepository) GetActive(now time.Time) ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.
		Where("active = ?", true).
		Where("start_date IS NULL OR start_date <= ?", now).
		Where("end_date IS NULL OR end_date > ?", now).
		Order("created_at ASC").
		Find(&badges).Error
	return badges, err
}

// GetLapsed retrieves active badges whose validity window has closed.
// Used by the expiry sweep to transition leftover in-progress rows.
func (r *BadgeRepository) GetLapsed(now time.Time) ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.
		Where("active = ?", true).
		Where("end_date IS NOT NULL AND end_date <= ?", now).
		Find(&badges).Error
	return badges, err
}
