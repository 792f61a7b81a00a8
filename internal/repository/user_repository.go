package repository

import (
	"gorm.io/gorm"

	"github.com/trailpost/trailpost-backend/internal/models"
)

// UserRepository handles user database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user in the database.
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreditPoints increments a user's aggregate score inside the caller's
// transaction. This is the only write path to users.points; it is called
// exactly once per badge, at the threshold crossing. Returns
// gorm.ErrRecordNotFound when the user row has vanished.
func (r *UserRepository) CreditPoints(tx *gorm.DB, userID uint, points int) error {
	result := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("points", gorm.Expr("points + ?", points))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
