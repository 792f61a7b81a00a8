// Package scheduler runs the engine's periodic maintenance jobs: the badge
// validity-window expiry sweep and the catalog cache refresh.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/trailpost/trailpost-backend/internal/config"
	"github.com/trailpost/trailpost-backend/internal/models"
	"github.com/trailpost/trailpost-backend/internal/repository"
	"github.com/trailpost/trailpost-backend/pkg/logger"
)

// BadgeRepository interface for catalog reads.
type BadgeRepository interface {
	GetLapsed(now time.Time) ([]models.Badge, error)
}

// ProgressRepository interface for the expiry transition.
type ProgressRepository interface {
	ExpireInProgress(badgeID uint) (int64, error)
}

// CatalogInvalidator drops the cached active-badge view.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service schedules periodic engine maintenance.
type Service struct {
	cfg          config.SchedulerConfig
	badgeRepo    BadgeRepository
	progressRepo ProgressRepository
	catalog      CatalogInvalidator
	log          *logger.Logger
	cron         *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg config.SchedulerConfig,
	badgeRepo *repository.BadgeRepository,
	progressRepo *repository.ProgressRepository,
	catalog CatalogInvalidator,
	log *logger.Logger,
) *Service {
	return &Service{
		cfg:          cfg,
		badgeRepo:    badgeRepo,
		progressRepo: progressRepo,
		catalog:      catalog,
		log:          log,
	}
}

// NewServiceWithInterfaces creates a new scheduler service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	cfg config.SchedulerConfig,
	badgeRepo BadgeRepository,
	progressRepo ProgressRepository,
	catalog CatalogInvalidator,
	log *logger.Logger,
) *Service {
	return &Service{
		cfg:          cfg,
		badgeRepo:    badgeRepo,
		progressRepo: progressRepo,
		catalog:      catalog,
		log:          log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.cfg.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.cfg.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.cfg.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	if _, err := s.cron.AddFunc(s.cfg.ExpirySweep, func() {
		if err := s.RunExpirySweep(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("Badge expiry sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid expiry sweep schedule %q: %w", s.cfg.ExpirySweep, err)
	}

	if _, err := s.cron.AddFunc(s.cfg.CatalogRefresh, func() {
		if err := s.catalog.Invalidate(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("Badge catalog refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid catalog refresh schedule %q: %w", s.cfg.CatalogRefresh, err)
	}

	s.cron.Start()
	s.log.Info().
		Str("expiry_sweep", s.cfg.ExpirySweep).
		Str("catalog_refresh", s.cfg.CatalogRefresh).
		Str("timezone", s.cfg.Timezone).
		Msg("Scheduler started")

	return nil
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// RunExpirySweep transitions in-progress rows of lapsed badges to expired
// and invalidates the catalog cache so closed windows stop matching.
// Progress rows are never deleted.
func (s *Service) RunExpirySweep(ctx context.Context) error {
	start := time.Now()

	lapsed, err := s.badgeRepo.GetLapsed(start)
	if err != nil {
		return fmt.Errorf("failed to load lapsed badges: %w", err)
	}

	var expired int64
	for _, badge := range lapsed {
		n, err := s.progressRepo.ExpireInProgress(badge.ID)
		if err != nil {
			s.log.Error().Err(err).Str("badge", badge.Name).Msg("Failed to expire badge progress")
			continue
		}
		expired += n
	}

	if err := s.catalog.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate badge catalog after sweep")
	}

	s.log.Info().
		Int("lapsed_badges", len(lapsed)).
		Int64("rows_expired", expired).
		Dur("duration", time.Since(start)).
		Msg("Badge expiry sweep complete")

	return nil
}
