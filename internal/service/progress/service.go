// Package progress provides the read path over badge progress: per-user
// badge views and the paginated point history. Pure reads, no mutation.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/trailpost/trailpost-backend/internal/models"
	"github.com/trailpost/trailpost-backend/internal/repository"
	"github.com/trailpost/trailpost-backend/pkg/logger"
)

// StatusFilter narrows the badge listing.
type StatusFilter string

const (
	// FilterNone returns every active badge.
	FilterNone StatusFilter = ""
	// FilterEarned returns only earned badges.
	FilterEarned StatusFilter = "earned"
	// FilterUnearned returns every badge not yet earned (locked,
	// in-progress or expired).
	FilterUnearned StatusFilter = "unearned"
)

// BadgeRepository interface for catalog reads.
type BadgeRepository interface {
	GetActive(now time.Time) ([]models.Badge, error)
}

// ProgressRepository interface for progress reads.
type ProgressRepository interface {
	ListByUser(userID uint) ([]models.UserBadgeProgress, error)
}

// LedgerRepository interface for point history reads.
type LedgerRepository interface {
	ListByUser(userID uint, page, limit int) ([]models.PointLedgerEntry, int64, error)
}

// BadgeView joins one active badge with the user's progress on it. A user
// with no progress row sees the badge as locked with zero points.
type BadgeView struct {
	BadgeID           uint                  `json:"badge_id"`
	Name              string                `json:"name"`
	Description       string                `json:"description"`
	Icon              string                `json:"icon"`
	Kind              models.BadgeKind      `json:"kind"`
	RequiredPoints    int                   `json:"required_points"`
	AccumulatedPoints int                   `json:"accumulated_points"`
	Status            models.ProgressStatus `json:"status"`
	EarnedAt          *time.Time            `json:"earned_at,omitempty"`
}

// LedgerEntryView is one row of the point history.
type LedgerEntryView struct {
	ID             uint      `json:"id"`
	BadgeID        uint      `json:"badge_id"`
	BadgeName      string    `json:"badge_name"`
	Action         string    `json:"action"`
	PointsCredited int       `json:"points_credited"`
	CreatedAt      time.Time `json:"created_at"`
}

// Pagination describes one page of results.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PointHistory is a page of ledger entries.
type PointHistory struct {
	Entries    []LedgerEntryView `json:"entries"`
	Pagination Pagination        `json:"pagination"`
}

// Service implements the progress aggregator.
type Service struct {
	badgeRepo    BadgeRepository
	progressRepo ProgressRepository
	ledgerRepo   LedgerRepository
	log          *logger.Logger
}

// NewService creates a new progress service.
func NewService(
	badgeRepo *repository.BadgeRepository,
	progressRepo *repository.ProgressRepository,
	ledgerRepo *repository.LedgerRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		badgeRepo:    badgeRepo,
		progressRepo: progressRepo,
		ledgerRepo:   ledgerRepo,
		log:          log,
	}
}

// NewServiceWithInterfaces creates a new progress service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	badgeRepo BadgeRepository,
	progressRepo ProgressRepository,
	ledgerRepo LedgerRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		badgeRepo:    badgeRepo,
		progressRepo: progressRepo,
		ledgerRepo:   ledgerRepo,
		log:          log,
	}
}

// GetBadgesForUser returns one view per active badge, left-joined with the
// user's progress rows. Badges the user never triggered appear as locked.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetBadgesForUser(ctx context.Context, userID uint, filter StatusFilter) ([]BadgeView, error) {
	badges, err := s.badgeRepo.GetActive(time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load active badges: %w", err)
	}

	rows, err := s.progressRepo.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge progress: %w", err)
	}

	byBadge := make(map[uint]*models.UserBadgeProgress, len(rows))
	for i := range rows {
		byBadge[rows[i].BadgeID] = &rows[i]
	}

	views := make([]BadgeView, 0, len(badges))
	for _, badge := range badges {
		view := BadgeView{
			BadgeID:        badge.ID,
			Name:           badge.Name,
			Description:    badge.Description,
			Icon:           badge.Icon,
			Kind:           badge.Kind,
			RequiredPoints: badge.PointsAwarded,
			Status:         models.StatusLocked,
		}
		if row, ok := byBadge[badge.ID]; ok {
			view.AccumulatedPoints = row.AccumulatedPoints
			view.Status = row.Status
			view.EarnedAt = row.EarnedAt
		}

		switch filter {
		case FilterEarned:
			if view.Status != models.StatusEarned {
				continue
			}
		case FilterUnearned:
			if view.Status == models.StatusEarned {
				continue
			}
		}

		views = append(views, view)
	}

	return views, nil
}

// GetPointHistory returns one page of the user's ledger, newest first.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetPointHistory(ctx context.Context, userID uint, page, limit int) (*PointHistory, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	entries, total, err := s.ledgerRepo.ListByUser(userID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load point history: %w", err)
	}

	views := make([]LedgerEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, LedgerEntryView{
			ID:             entry.ID,
			BadgeID:        entry.BadgeID,
			BadgeName:      entry.Badge.Name,
			Action:         entry.Action,
			PointsCredited: entry.PointsCredited,
			CreatedAt:      entry.CreatedAt,
		})
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &PointHistory{
		Entries: views,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}
