package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"realms-server/internal/models"
)

// Compile-time check
var _ GameLogRepository = (*pgGameLogRepository)(nil)

type pgGameLogRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPgGameLogRepository(db DBTX, logger *zap.Logger) GameLogRepository {
	return &pgGameLogRepository{
		db:     db,
		logger: logger.Named("PgGameLogRepo"),
	}
}

func (r *pgGameLogRepository) Save(ctx context.Context, log *models.GameLog) error {
	query := `
        INSERT INTO game_logs (character_name, summary, created_at)
        VALUES ($1, $2, $3)
    `
	_, err := r.db.Exec(ctx, query, log.CharacterName, log.Summary, log.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to save game log",
			zap.String("characterName", log.CharacterName),
			zap.Error(err))
		return fmt.Errorf("failed to save game log for %s: %w", log.CharacterName, err)
	}
	r.logger.Info("Game log saved", zap.String("characterName", log.CharacterName))
	return nil
}

func (r *pgGameLogRepository) LastForCharacter(ctx context.Context, characterName string) (*models.GameLog, error) {
	query := `
        SELECT character_name, summary, created_at
        FROM game_logs
        WHERE character_name = $1
        ORDER BY created_at DESC
        LIMIT 1
    `
	log := &models.GameLog{}
	err := r.db.QueryRow(ctx, query, characterName).Scan(
		&log.CharacterName, &log.Summary, &log.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get last game log",
			zap.String("characterName", characterName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get last game log for %s: %w", characterName, err)
	}
	return log, nil
}

func (r *pgGameLogRepository) ListForCharacter(ctx context.Context, characterName string, limit int) ([]models.GameLog, error) {
	query := `
        SELECT character_name, summary, created_at
        FROM game_logs
        WHERE character_name = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	var logs []models.GameLog
	if err := pgxscan.Select(ctx, r.db, &logs, query, characterName, limit); err != nil {
		r.logger.Error("Failed to list game logs for character",
			zap.String("characterName", characterName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list game logs for %s: %w", characterName, err)
	}
	return logs, nil
}

func (r *pgGameLogRepository) ListRecent(ctx context.Context, limit int) ([]models.GameLog, error) {
	query := `
        SELECT character_name, summary, created_at
        FROM game_logs
        ORDER BY created_at DESC
        LIMIT $1
    `
	var logs []models.GameLog
	if err := pgxscan.Select(ctx, r.db, &logs, query, limit); err != nil {
		r.logger.Error("Failed to list recent game logs", zap.Error(err))
		return nil, fmt.Errorf("failed to list recent game logs: %w", err)
	}
	return logs, nil
}

func (r *pgGameLogRepository) KnownCharacterNames(ctx context.Context) ([]string, error) {
	query := `
        SELECT DISTINCT character_name
        FROM game_logs
        ORDER BY character_name
    `
	var names []string
	if err := pgxscan.Select(ctx, r.db, &names, query); err != nil {
		r.logger.Error("Failed to list known character names", zap.Error(err))
		return nil, fmt.Errorf("failed to list known character names: %w", err)
	}
	return names, nil
}
