// Package models defines domain models for the gamification engine.
package models

import (
	"encoding/json"
	"time"
)

// BadgeKind distinguishes one-time badges from points-accumulation badges.
type BadgeKind string

const (
	// BadgeKindSpecial is earned in full on the first qualifying action.
	BadgeKindSpecial BadgeKind = "special"
	// BadgeKindPoints is earned by accumulating points across actions.
	BadgeKindPoints BadgeKind = "points"
)

// Badge represents a catalog entry. The engine treats the catalog as
// read-only; rows are managed by administrators out of band.
type Badge struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Icon          string          `gorm:"size:50" json:"icon"`
	Kind          BadgeKind       `gorm:"not null;size:20" json:"kind"`
	PointsAwarded int             `gorm:"not null" json:"points_awarded"`
	Condition     json.RawMessage `gorm:"type:jsonb" json:"condition"` // action name -> rule
	Active        bool            `gorm:"not null;default:true" json:"active"`
	StartDate     *time.Time      `json:"start_date,omitempty"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Badge model.
func (Badge) TableName() string {
	return "badges"
}

// InWindow reports whether the badge's validity window contains t.
// The window is [StartDate, EndDate); a nil bound is open.
func (b *Badge) InWindow(t time.Time) bool {
	if b.StartDate != nil && t.Before(*b.StartDate) {
		return false
	}
	if b.EndDate != nil && !t.Before(*b.EndDate) {
		return false
	}
	return true
}

// ProgressStatus is the lifecycle state of a user's progress on a badge.
type ProgressStatus string

const (
	// StatusLocked is a view-only state: the user has no progress row yet.
	StatusLocked ProgressStatus = "locked"
	// StatusInProgress means some points are accumulated but the threshold
	// has not been reached.
	StatusInProgress ProgressStatus = "in_progress"
	// StatusEarned means the threshold was crossed and the score credited.
	StatusEarned ProgressStatus = "earned"
	// StatusExpired means the badge's validity window closed before the
	// threshold was reached. Rows are never deleted, only transitioned.
	StatusExpired ProgressStatus = "expired"
)

// UserBadgeProgress tracks one user's progress on one badge. At most one row
// exists per (user, badge) pair; it is created lazily on the first
// qualifying action and mutated only inside the awarder transactions.
type UserBadgeProgress struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            uint           `gorm:"not null;uniqueIndex:idx_user_badge" json:"user_id"`
	User              User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BadgeID           uint           `gorm:"not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	Badge             Badge          `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	AccumulatedPoints int            `gorm:"not null;default:0" json:"accumulated_points"`
	RequiredPoints    int            `gorm:"not null" json:"required_points"`
	Status            ProgressStatus `gorm:"not null;size:20" json:"status"`
	EarnedAt          *time.Time     `json:"earned_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// TableName specifies the table name for UserBadgeProgress model.
func (UserBadgeProgress) TableName() string {
	return "user_badge_progress"
}

// PointLedgerEntry is the append-only record of one processed
// (user, badge, action) occurrence. PointsCredited is nonzero only on the
// call that crossed the badge threshold. The (user, badge, action) index
// backs the idempotency count queries.
type PointLedgerEntry struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"not null;index:idx_ledger_user_badge_action" json:"user_id"`
	BadgeID        uint            `gorm:"not null;index:idx_ledger_user_badge_action" json:"badge_id"`
	Badge          Badge           `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	Action         string          `gorm:"not null;size:100;index:idx_ledger_user_badge_action" json:"action"`
	PointsCredited int             `gorm:"not null" json:"points_credited"`
	Meta           json.RawMessage `gorm:"type:jsonb" json:"meta,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TableName specifies the table name for PointLedgerEntry model.
func (PointLedgerEntry) TableName() string {
	return "point_ledger"
}
