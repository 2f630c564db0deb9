package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"realms-server/internal/models"
)

// Mock UserLimitRepository
type UserLimitRepository struct {
	mock.Mock
}

func (m *UserLimitRepository) Get(ctx context.Context, userID uuid.UUID) (*models.UserLimit, error) {
	args := m.Called(ctx, userID)
	limit, _ := args.Get(0).(*models.UserLimit)
	return limit, args.Error(1)
}

func (m *UserLimitRepository) Upsert(ctx context.Context, limit *models.UserLimit) error {
	args := m.Called(ctx, limit)
	return args.Error(0)
}

// Mock GameLogRepository
type GameLogRepository struct {
	mock.Mock
}

func (m *GameLogRepository) Save(ctx context.Context, log *models.GameLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *GameLogRepository) LastForCharacter(ctx context.Context, characterName string) (*models.GameLog, error) {
	args := m.Called(ctx, characterName)
	log, _ := args.Get(0).(*models.GameLog)
	return log, args.Error(1)
}

func (m *GameLogRepository) ListForCharacter(ctx context.Context, characterName string, limit int) ([]models.GameLog, error) {
	args := m.Called(ctx, characterName, limit)
	logs, _ := args.Get(0).([]models.GameLog)
	return logs, args.Error(1)
}

func (m *GameLogRepository) ListRecent(ctx context.Context, limit int) ([]models.GameLog, error) {
	args := m.Called(ctx, limit)
	logs, _ := args.Get(0).([]models.GameLog)
	return logs, args.Error(1)
}

func (m *GameLogRepository) KnownCharacterNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

// Mock WorldLoreRepository
type WorldLoreRepository struct {
	mock.Mock
}

func (m *WorldLoreRepository) Latest(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// Mock DigestCache
type DigestCache struct {
	mock.Mock
}

func (m *DigestCache) GetDigest(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *DigestCache) SetDigest(ctx context.Context, digest string, ttl time.Duration) error {
	args := m.Called(ctx, digest, ttl)
	return args.Error(0)
}

func (m *DigestCache) GetLore(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *DigestCache) SetLore(ctx context.Context, lore string, ttl time.Duration) error {
	args := m.Called(ctx, lore, ttl)
	return args.Error(0)
}
