package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"realms-server/internal/models"
)

// DBTX is the subset of pgxpool.Pool the repositories need. A pgx.Tx
// satisfies it too, so repositories work inside transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserLimitRepository persists per-user request budgets.
type UserLimitRepository interface {
	// Get returns the budget record for the user, or models.ErrNotFound
	// when the user has never been seen.
	Get(ctx context.Context, userID uuid.UUID) (*models.UserLimit, error)
	// Upsert writes the record, inserting it on first observation.
	Upsert(ctx context.Context, limit *models.UserLimit) error
}

// GameLogRepository persists end-of-session summaries.
type GameLogRepository interface {
	// Save appends a summary for the character.
	Save(ctx context.Context, log *models.GameLog) error
	// LastForCharacter returns the most recent summary for the
	// character, or models.ErrNotFound.
	LastForCharacter(ctx context.Context, characterName string) (*models.GameLog, error)
	// ListForCharacter returns the character's summaries, newest first.
	ListForCharacter(ctx context.Context, characterName string, limit int) ([]models.GameLog, error)
	// ListRecent returns the newest summaries across all characters.
	ListRecent(ctx context.Context, limit int) ([]models.GameLog, error)
	// KnownCharacterNames lists characters that have at least one
	// archived session.
	KnownCharacterNames(ctx context.Context) ([]string, error)
}

// WorldLoreRepository reads the curated world description.
type WorldLoreRepository interface {
	// Latest returns the newest lore document, or models.ErrNotFound
	// when the table is empty.
	Latest(ctx context.Context) (string, error)
}

// DigestCache is the short-lived cache in front of the lore and archive
// reads that happen on every chat prompt.
type DigestCache interface {
	GetDigest(ctx context.Context) (string, error)
	SetDigest(ctx context.Context, digest string, ttl time.Duration) error
	GetLore(ctx context.Context) (string, error)
	SetLore(ctx context.Context, lore string, ttl time.Duration) error
}
