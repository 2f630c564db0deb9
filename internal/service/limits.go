package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realms-server/internal/models"
	"realms-server/internal/repository"
)

// LimitService owns the per-user request budget. Reads are fail-soft:
// a storage error never blocks a player, it just hands out a default
// in-memory budget for the request.
type LimitService interface {
	// GetLimits returns the user's current budget, applying the lazy
	// daily reset when the window has expired.
	GetLimits(ctx context.Context, userID uuid.UUID) (*models.UserLimit, error)
	// Decrement consumes one request and returns the remaining count.
	// At zero, or when the stored count cannot be read, it returns 0
	// without touching storage.
	Decrement(ctx context.Context, userID uuid.UUID) (int, error)
	// GrantReward sets the budget to the ad-reward amount. The reset
	// window keeps ticking from the last reset.
	GrantReward(ctx context.Context, userID uuid.UUID) (*models.UserLimit, error)
	// NextResetTime reports when the current budget window expires.
	NextResetTime(limit *models.UserLimit) time.Time
}

type limitService struct {
	repo         repository.UserLimitRepository
	logger       *zap.Logger
	defaultLimit int
	resetWindow  time.Duration
	rewardCount  int
	now          func() time.Time
}

var _ LimitService = (*limitService)(nil)

func NewLimitService(repo repository.UserLimitRepository, defaultLimit int, resetWindow time.Duration, rewardCount int, logger *zap.Logger) LimitService {
	return &limitService{
		repo:         repo,
		logger:       logger.Named("LimitService"),
		defaultLimit: defaultLimit,
		resetWindow:  resetWindow,
		rewardCount:  rewardCount,
		now:          time.Now,
	}
}

func (s *limitService) GetLimits(ctx context.Context, userID uuid.UUID) (*models.UserLimit, error) {
	now := s.now()

	limit, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// First observation of this user.
			limit = &models.UserLimit{
				UserID:       userID,
				RequestCount: s.defaultLimit,
				LastResetAt:  now,
			}
			if upsertErr := s.repo.Upsert(ctx, limit); upsertErr != nil {
				s.logger.Warn("Failed to persist initial user limit",
					zap.String("userID", userID.String()),
					zap.Error(upsertErr))
			}
			return limit, nil
		}
		// Storage trouble must not lock the player out.
		s.logger.Warn("Failed to read user limit, serving default budget",
			zap.String("userID", userID.String()),
			zap.Error(err))
		return &models.UserLimit{
			UserID:       userID,
			RequestCount: s.defaultLimit,
			LastResetAt:  now,
		}, nil
	}

	if now.Sub(limit.LastResetAt) >= s.resetWindow {
		limit.RequestCount = s.defaultLimit
		limit.LastResetAt = now
		if err := s.repo.Upsert(ctx, limit); err != nil {
			s.logger.Warn("Failed to persist budget reset",
				zap.String("userID", userID.String()),
				zap.Error(err))
		} else {
			s.logger.Info("Budget window reset",
				zap.String("userID", userID.String()),
				zap.Int("requestCount", limit.RequestCount))
		}
	}

	return limit, nil
}

func (s *limitService) Decrement(ctx context.Context, userID uuid.UUID) (int, error) {
	// Deliberately not GetLimits: its fail-soft default would be written
	// back here and clobber whatever count is really stored.
	limit, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("Failed to read user limit for decrement, skipping charge",
				zap.String("userID", userID.String()),
				zap.Error(err))
		}
		return 0, nil
	}

	if limit.RequestCount <= 0 {
		return 0, nil
	}

	limit.RequestCount--
	if err := s.repo.Upsert(ctx, limit); err != nil {
		return limit.RequestCount, err
	}
	return limit.RequestCount, nil
}

func (s *limitService) GrantReward(ctx context.Context, userID uuid.UUID) (*models.UserLimit, error) {
	limit, err := s.GetLimits(ctx, userID)
	if err != nil {
		return nil, err
	}

	// The reward overwrites the counter instead of adding to it, and
	// deliberately leaves LastResetAt alone.
	limit.RequestCount = s.rewardCount
	if err := s.repo.Upsert(ctx, limit); err != nil {
		return nil, err
	}

	s.logger.Info("Ad reward granted",
		zap.String("userID", userID.String()),
		zap.Int("requestCount", limit.RequestCount))
	return limit, nil
}

func (s *limitService) NextResetTime(limit *models.UserLimit) time.Time {
	return limit.LastResetAt.Add(s.resetWindow)
}
