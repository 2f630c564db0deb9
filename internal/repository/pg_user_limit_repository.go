package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"realms-server/internal/models"
)

// Compile-time check
var _ UserLimitRepository = (*pgUserLimitRepository)(nil)

type pgUserLimitRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPgUserLimitRepository(db DBTX, logger *zap.Logger) UserLimitRepository {
	return &pgUserLimitRepository{
		db:     db,
		logger: logger.Named("PgUserLimitRepo"),
	}
}

func (r *pgUserLimitRepository) Get(ctx context.Context, userID uuid.UUID) (*models.UserLimit, error) {
	query := `
        SELECT user_id, request_count, last_reset_at
        FROM user_limits
        WHERE user_id = $1
    `
	limit := &models.UserLimit{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&limit.UserID, &limit.RequestCount, &limit.LastResetAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get user limit", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get user limit for %s: %w", userID, err)
	}
	return limit, nil
}

func (r *pgUserLimitRepository) Upsert(ctx context.Context, limit *models.UserLimit) error {
	query := `
        INSERT INTO user_limits (user_id, request_count, last_reset_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id)
        DO UPDATE SET request_count = EXCLUDED.request_count,
                      last_reset_at = EXCLUDED.last_reset_at
    `
	_, err := r.db.Exec(ctx, query, limit.UserID, limit.RequestCount, limit.LastResetAt)
	if err != nil {
		r.logger.Error("Failed to upsert user limit",
			zap.String("userID", limit.UserID.String()),
			zap.Int("requestCount", limit.RequestCount),
			zap.Error(err))
		return fmt.Errorf("failed to upsert user limit for %s: %w", limit.UserID, err)
	}
	r.logger.Debug("User limit upserted",
		zap.String("userID", limit.UserID.String()),
		zap.Int("requestCount", limit.RequestCount))
	return nil
}
