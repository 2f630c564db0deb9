package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"realms-server/internal/models"
)

// Compile-time check
var _ WorldLoreRepository = (*pgWorldLoreRepository)(nil)

type pgWorldLoreRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPgWorldLoreRepository(db DBTX, logger *zap.Logger) WorldLoreRepository {
	return &pgWorldLoreRepository{
		db:     db,
		logger: logger.Named("PgWorldLoreRepo"),
	}
}

func (r *pgWorldLoreRepository) Latest(ctx context.Context) (string, error) {
	query := `
        SELECT content
        FROM world_lore
        ORDER BY created_at DESC
        LIMIT 1
    `
	var content string
	err := r.db.QueryRow(ctx, query).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", models.ErrNotFound
		}
		r.logger.Error("Failed to get world lore", zap.Error(err))
		return "", fmt.Errorf("failed to get world lore: %w", err)
	}
	return content, nil
}
