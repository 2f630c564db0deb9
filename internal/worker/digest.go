package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"realms-server/internal/models"
	"realms-server/internal/repository"
	"realms-server/internal/service"
)

// DigestBuilder rebuilds the cached archive digest from the database
// whenever an archive event arrives.
type DigestBuilder struct {
	db         *pgxpool.Pool
	redis      *redis.Client
	logger     zerolog.Logger
	digestSize int
	ttl        time.Duration
}

func NewDigestBuilder(db *pgxpool.Pool, redisClient *redis.Client, digestSize int, ttl time.Duration, logger zerolog.Logger) *DigestBuilder {
	return &DigestBuilder{
		db:         db,
		redis:      redisClient,
		logger:     logger.With().Str("component", "DigestBuilder").Logger(),
		digestSize: digestSize,
		ttl:        ttl,
	}
}

// Rebuild reads the newest summaries and replaces the cached digest.
func (b *DigestBuilder) Rebuild(ctx context.Context) error {
	query := `
        SELECT character_name, summary, created_at
        FROM game_logs
        ORDER BY created_at DESC
        LIMIT $1
    `
	var logs []models.GameLog
	if err := pgxscan.Select(ctx, b.db, &logs, query, b.digestSize); err != nil {
		return fmt.Errorf("failed to list recent game logs: %w", err)
	}

	digest := service.BuildArchiveDigest(logs)
	if digest == "" {
		// Nothing archived yet; leave the key alone so readers fall
		// back to the built-in text.
		b.logger.Debug().Msg("No game logs, digest not written")
		return nil
	}

	if err := b.redis.Set(ctx, repository.ArchiveDigestKey, digest, b.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store archive digest: %w", err)
	}

	b.logger.Info().Int("entries", len(logs)).Msg("Archive digest rebuilt")
	return nil
}
