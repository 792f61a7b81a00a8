// Package catalog provides a read-only, cached view of the active badge
// catalog with condition rules pre-parsed for the award engine.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trailpost/trailpost-backend/internal/cache"
	"github.com/trailpost/trailpost-backend/internal/models"
	"github.com/trailpost/trailpost-backend/internal/repository"
	"github.com/trailpost/trailpost-backend/pkg/logger"
)

const activeBadgesKey = "gamification:badges:active"

// BadgeRepository interface for catalog reads.
type BadgeRepository interface {
	GetActive(now time.Time) ([]models.Badge, error)
}

// ActiveBadge pairs a badge with its parsed condition rules, keyed by
// normalized action name.
type ActiveBadge struct {
	Badge models.Badge
	Rules map[string]models.Rule
}

// Service serves the active badge catalog through a Redis cache.
type Service struct {
	repo  BadgeRepository
	cache cache.Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewService creates a new catalog service.
func NewService(repo *repository.BadgeRepository, c cache.Cache, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl, log: log}
}

// NewServiceWithInterfaces creates a new catalog service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(repo BadgeRepository, c cache.Cache, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl, log: log}
}

// ActiveBadges returns every active badge whose validity window contains
// now, with parsed rules. Badges come from the cache when possible; cache
// failures fall through to the database rather than failing the caller.
func (s *Service) ActiveBadges(ctx context.Context) ([]ActiveBadge, error) {
	var badges []models.Badge

	cached, err := s.cache.Get(ctx, activeBadgesKey)
	if err != nil {
		s.log.Warn().Err(err).Msg("Badge catalog cache read failed")
	}

	if cached != "" {
		if err := json.Unmarshal([]byte(cached), &badges); err != nil {
			s.log.Warn().Err(err).Msg("Discarding malformed badge catalog cache entry")
			badges = nil
		}
	}

	if badges == nil {
		badges, err = s.repo.GetActive(time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to load active badges: %w", err)
		}
		if badges == nil {
			// A nil slice marshals to "null", which would read back as a
			// cache miss; an empty catalog must still cache.
			badges = []models.Badge{}
		}
		s.populateCache(ctx, badges)
	}

	active := make([]ActiveBadge, 0, len(badges))
	for _, badge := range badges {
		rules := models.ParseConditionMap(badge.Kind, badge.Condition)
		if len(rules) == 0 {
			// A badge with no parseable rules matches nothing; keep it
			// visible to the read path but log once per load.
			s.log.Debug().Str("badge", badge.Name).Msg("Badge has no valid condition rules")
		}
		active = append(active, ActiveBadge{Badge: badge, Rules: rules})
	}

	return active, nil
}

// Invalidate drops the cached catalog view so the next read reloads from
// the database. Called by the scheduler when validity windows roll over.
func (s *Service) Invalidate(ctx context.Context) error {
	if err := s.cache.Del(ctx, activeBadgesKey); err != nil {
		return fmt.Errorf("failed to invalidate badge catalog cache: %w", err)
	}
	return nil
}

func (s *Service) populateCache(ctx context.Context, badges []models.Badge) {
	payload, err := json.Marshal(badges)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to marshal badge catalog for cache")
		return
	}
	if err := s.cache.Set(ctx, activeBadgesKey, string(payload), s.ttl); err != nil {
		s.log.Warn().Err(err).Msg("Badge catalog cache write failed")
	}
}
