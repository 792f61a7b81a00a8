// Package engine implements the gamification award engine: it reacts to
// user actions, matches them against badge condition rules, and mutates
// badge progress, the point ledger, and the user aggregate score inside
// per-(user, badge) transactions.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	prommetrics "github.com/trailpost/trailpost-backend/internal/metrics"
	"github.com/trailpost/trailpost-backend/internal/models"
	"github.com/trailpost/trailpost-backend/internal/repository"
	"github.com/trailpost/trailpost-backend/internal/service/catalog"
	"github.com/trailpost/trailpost-backend/pkg/logger"
)

// BadgeSource provides the active badge catalog with parsed rules.
type BadgeSource interface {
	ActiveBadges(ctx context.Context) ([]catalog.ActiveBadge, error)
}

// Options tunes transaction retry behavior.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// Service evaluates user actions against the badge catalog and applies
// awards. It never surfaces errors to callers: the triggering business
// operation must succeed regardless of badge evaluation.
type Service struct {
	db       *repository.DB
	badges   BadgeSource
	progress *repository.ProgressRepository
	ledger   *repository.LedgerRepository
	users    *repository.UserRepository
	opts     Options
	log      *logger.Logger
}

// NewService creates a new award engine service.
func NewService(
	db *repository.DB,
	badges BadgeSource,
	progress *repository.ProgressRepository,
	ledger *repository.LedgerRepository,
	users *repository.UserRepository,
	opts Options,
	log *logger.Logger,
) *Service {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	return &Service{
		db:       db,
		badges:   badges,
		progress: progress,
		ledger:   ledger,
		users:    users,
		opts:     opts,
		log:      log,
	}
}

// HandleUserAction processes one user action: the action name is
// normalized once, matched against every active badge's rule map, and each
// matching badge goes through its awarder. Badges without a rule for the
// action are skipped silently; that is the normal case, not an error.
func (s *Service) HandleUserAction(ctx context.Context, userID uint, action string, meta map[string]interface{}) {
	normalized := models.NormalizeAction(action)
	if normalized == "" {
		return
	}

	badges, err := s.badges.ActiveBadges(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("action", normalized).Msg("Failed to load badge catalog")
		prommetrics.RecordActionProcessed(normalized, "error")
		return
	}

	metaJSON := marshalMeta(meta)

	matched := false
	for _, ab := range badges {
		rule, ok := ab.Rules[normalized]
		if !ok {
			continue
		}
		matched = true

		if err := s.awardWithRetry(ctx, userID, ab.Badge, rule, normalized, metaJSON); err != nil {
			kind := classifyError(err)
			prommetrics.RecordAwardError(kind)
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("badge", ab.Badge.Name).
				Str("action", normalized).
				Str("kind", kind).
				Msg("Award attempt dropped")
		}
	}

	status := "matched"
	if !matched {
		status = "unmatched"
	}
	prommetrics.RecordActionProcessed(normalized, status)
}

// awardWithRetry runs one award transaction, retrying serialization and
// duplicate-key conflicts up to the configured bound.
func (s *Service) awardWithRetry(ctx context.Context, userID uint, badge models.Badge, rule models.Rule, action string, meta json.RawMessage) error {
	var err error
	for attempt := 0; attempt < s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			prommetrics.RecordAwardRetry()
			time.Sleep(s.opts.RetryBackoff)
		}

		err = s.awardOnce(ctx, userID, badge, rule, action, meta)
		if err == nil || !isConflict(err) {
			return err
		}

		s.log.Debug().
			Err(err).
			Uint("user_id", userID).
			Uint("badge_id", badge.ID).
			Int("attempt", attempt+1).
			Msg("Award transaction conflict, retrying")
	}
	return err
}

// awardOnce executes a single award attempt inside one transaction scoped
// to the (userID, badge.ID) pair.
func (s *Service) awardOnce(ctx context.Context, userID uint, badge models.Badge, rule models.Rule, action string, meta json.RawMessage) error {
	start := time.Now()

	var res awardResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		switch rule.Kind {
		case models.RuleFirstTime:
			res, txErr = s.awardSpecial(tx, userID, badge, action, meta)
		case models.RuleAccumulation:
			res, txErr = s.awardAccumulation(tx, userID, badge, rule, action, meta)
		default:
			// Unknown rule kinds are filtered out at parse time.
			txErr = nil
		}
		return txErr
	})

	prommetrics.ObserveAwardDuration(string(badge.Kind), time.Since(start).Seconds())

	if err != nil {
		return err
	}

	if res.earned {
		prommetrics.RecordBadgeAwarded(badge.Name, string(badge.Kind), res.credited)
		s.log.Info().
			Uint("user_id", userID).
			Str("badge", badge.Name).
			Str("action", action).
			Int("points", res.credited).
			Msg("Badge earned")
	}

	return nil
}

// awardResult reports what one committed award transaction did.
type awardResult struct {
	earned   bool
	credited int
}

func marshalMeta(meta map[string]interface{}) json.RawMessage {
	if len(meta) == 0 {
		return nil
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return payload
}

// isConflict reports whether err is a serialization or uniqueness conflict
// worth retrying: a concurrent awarder won the race on the same pair.
func isConflict(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, fragment := range []string{
		"duplicate key",
		"UNIQUE constraint failed",
		"could not serialize",
		"deadlock detected",
		"database is locked",
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// classifyError maps an award failure onto the error taxonomy used for
// logging and metrics.
func classifyError(err error) string {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "not_found"
	case isConflict(err):
		return "conflict"
	default:
		return "internal"
	}
}
