package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"realms-server/internal/models"
)

// Cache keys, shared with the digest worker.
const (
	ArchiveDigestKey = "realms:archive_digest"
	WorldLoreKey     = "realms:world_lore"
)

// Compile-time check
var _ DigestCache = (*redisDigestCache)(nil)

type redisDigestCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisDigestCache(client *redis.Client, logger *zap.Logger) DigestCache {
	return &redisDigestCache{
		client: client,
		logger: logger.Named("RedisDigestCache"),
	}
}

func (c *redisDigestCache) GetDigest(ctx context.Context) (string, error) {
	return c.get(ctx, ArchiveDigestKey)
}

func (c *redisDigestCache) SetDigest(ctx context.Context, digest string, ttl time.Duration) error {
	return c.set(ctx, ArchiveDigestKey, digest, ttl)
}

func (c *redisDigestCache) GetLore(ctx context.Context) (string, error) {
	return c.get(ctx, WorldLoreKey)
}

func (c *redisDigestCache) SetLore(ctx context.Context, lore string, ttl time.Duration) error {
	return c.set(ctx, WorldLoreKey, lore, ttl)
}

func (c *redisDigestCache) get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", models.ErrNotFound
		}
		c.logger.Warn("Redis GET failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (c *redisDigestCache) set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("Redis SET failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
