package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/trailpost/trailpost-backend/internal/models"
)

// awardAccumulation handles points-accumulation badges. Points are added
// to the badge progress on every qualifying action up to the optional
// action cap, so partial credit stays visible while in progress; the user
// aggregate score is credited once, at the threshold crossing. Calls past
// the cap or after the badge is earned still append a zero-credit ledger
// entry for the audit trail.
func (s *Service) awardAccumulation(tx *gorm.DB, userID uint, badge models.Badge, rule models.Rule, action string, meta json.RawMessage) (awardResult, error) {
	if rule.ActionCap > 0 {
		count, err := s.ledger.CountByAction(tx, userID, badge.ID, action)
		if err != nil {
			return awardResult{}, fmt.Errorf("failed to count ledger entries: %w", err)
		}
		if count >= int64(rule.ActionCap) {
			return awardResult{}, s.appendZeroCredit(tx, userID, badge.ID, action, meta)
		}
	}

	progress, err := s.progress.GetForUpdate(tx, userID, badge.ID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		progress = &models.UserBadgeProgress{
			UserID:         userID,
			BadgeID:        badge.ID,
			RequiredPoints: badge.PointsAwarded,
			Status:         models.StatusInProgress,
		}
		if err := s.progress.Create(tx, progress); err != nil {
			return awardResult{}, fmt.Errorf("failed to create badge progress: %w", err)
		}
	case err != nil:
		return awardResult{}, fmt.Errorf("failed to lock badge progress: %w", err)
	}

	// Earned and expired rows are terminal.
	if progress.Status != models.StatusInProgress {
		return awardResult{}, s.appendZeroCredit(tx, userID, badge.ID, action, meta)
	}

	progress.AccumulatedPoints += rule.PointsPerAction
	if progress.AccumulatedPoints > badge.PointsAwarded {
		progress.AccumulatedPoints = badge.PointsAwarded
	}

	credited := 0
	if progress.AccumulatedPoints == badge.PointsAwarded {
		now := time.Now()
		progress.Status = models.StatusEarned
		progress.EarnedAt = &now
		credited = badge.PointsAwarded

		if err := s.users.CreditPoints(tx, userID, credited); err != nil {
			return awardResult{}, fmt.Errorf("failed to credit user score: %w", err)
		}
	}

	if err := s.progress.Save(tx, progress); err != nil {
		return awardResult{}, fmt.Errorf("failed to save badge progress: %w", err)
	}

	entry := &models.PointLedgerEntry{
		UserID:         userID,
		BadgeID:        badge.ID,
		Action:         action,
		PointsCredited: credited,
		Meta:           meta,
	}
	if err := s.ledger.Append(tx, entry); err != nil {
		return awardResult{}, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return awardResult{earned: credited > 0, credited: credited}, nil
}

// appendZeroCredit records an occurrence that changed no progress.
func (s *Service) appendZeroCredit(tx *gorm.DB, userID, badgeID uint, action string, meta json.RawMessage) error {
	entry := &models.PointLedgerEntry{
		UserID:         userID,
		BadgeID:        badgeID,
		Action:         action,
		PointsCredited: 0,
		Meta:           meta,
	}
	if err := s.ledger.Append(tx, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}
