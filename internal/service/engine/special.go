package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/trailpost/trailpost-backend/internal/models"
)

// awardSpecial handles one-time badges: the first occurrence of the action
// earns the badge in full, every later occurrence is a no-op. The ledger
// count is the idempotency source; the progress-row existence check guards
// the window between two racing first occurrences (the unique index turns
// the loser's insert into a conflict retried by the caller, which then
// lands on the count > 0 path).
func (s *Service) awardSpecial(tx *gorm.DB, userID uint, badge models.Badge, action string, meta json.RawMessage) (awardResult, error) {
	count, err := s.ledger.CountByAction(tx, userID, badge.ID, action)
	if err != nil {
		return awardResult{}, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	if count > 0 {
		return awardResult{}, nil
	}

	exists, err := s.progress.Exists(tx, userID, badge.ID)
	if err != nil {
		return awardResult{}, fmt.Errorf("failed to check badge progress: %w", err)
	}
	if exists {
		return awardResult{}, nil
	}

	now := time.Now()
	progress := &models.UserBadgeProgress{
		UserID:            userID,
		BadgeID:           badge.ID,
		AccumulatedPoints: badge.PointsAwarded,
		RequiredPoints:    badge.PointsAwarded,
		Status:            models.StatusEarned,
		EarnedAt:          &now,
	}
	if err := s.progress.Create(tx, progress); err != nil {
		return awardResult{}, fmt.Errorf("failed to create badge progress: %w", err)
	}

	entry := &models.PointLedgerEntry{
		UserID:         userID,
		BadgeID:        badge.ID,
		Action:         action,
		PointsCredited: badge.PointsAwarded,
		Meta:           meta,
	}
	if err := s.ledger.Append(tx, entry); err != nil {
		return awardResult{}, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	if err := s.users.CreditPoints(tx, userID, badge.PointsAwarded); err != nil {
		return awardResult{}, fmt.Errorf("failed to credit user score: %w", err)
	}

	return awardResult{earned: true, credited: badge.PointsAwarded}, nil
}
