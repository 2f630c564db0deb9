package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realms-server/internal/lore"
	"realms-server/internal/messaging"
	"realms-server/internal/models"
	"realms-server/internal/repository"
)

// StoryService serves the world lore and the archive of past sessions.
// Reads go cache first, then the database, then the built-in fallback;
// nothing on this path is allowed to fail a request.
type StoryService interface {
	// WorldLore returns the curated world description.
	WorldLore(ctx context.Context) string
	// ArchiveDigest returns the compact chronicle of recent sessions
	// used as context for the lore chat.
	ArchiveDigest(ctx context.Context) string
	// RefreshArchiveDigest rebuilds the digest from the database and
	// stores it in the cache.
	RefreshArchiveDigest(ctx context.Context) (string, error)
	// LastSummary returns the most recent summary for a character, or
	// models.ErrNotFound when the character has no archived sessions.
	LastSummary(ctx context.Context, characterName string) (*models.GameLog, error)
	// SummariesFor lists a character's archived sessions, newest first.
	SummariesFor(ctx context.Context, characterName string) ([]models.ArchiveEntry, error)
	// SaveSummary archives a finished session and announces it to the
	// digest worker.
	SaveSummary(ctx context.Context, userID uuid.UUID, characterName, summary string) error
	// KnownCharacterNames lists characters with at least one archived
	// session.
	KnownCharacterNames(ctx context.Context) ([]string, error)
}

type storyService struct {
	gameLogs   repository.GameLogRepository
	worldLore  repository.WorldLoreRepository
	cache      repository.DigestCache
	publisher  messaging.ArchiveEventPublisher
	logger     *zap.Logger
	digestSize int
	cacheTTL   time.Duration
	now        func() time.Time
}

var _ StoryService = (*storyService)(nil)

func NewStoryService(
	gameLogs repository.GameLogRepository,
	worldLore repository.WorldLoreRepository,
	cache repository.DigestCache,
	publisher messaging.ArchiveEventPublisher,
	digestSize int,
	cacheTTL time.Duration,
	logger *zap.Logger,
) StoryService {
	return &storyService{
		gameLogs:   gameLogs,
		worldLore:  worldLore,
		cache:      cache,
		publisher:  publisher,
		logger:     logger.Named("StoryService"),
		digestSize: digestSize,
		cacheTTL:   cacheTTL,
		now:        time.Now,
	}
}

func (s *storyService) WorldLore(ctx context.Context) string {
	if cached, err := s.cache.GetLore(ctx); err == nil && cached != "" {
		return cached
	}

	content, err := s.worldLore.Latest(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("Failed to load world lore, using fallback", zap.Error(err))
		}
		return lore.FallbackWorldLore
	}

	if err := s.cache.SetLore(ctx, content, s.cacheTTL); err != nil {
		s.logger.Debug("Failed to cache world lore", zap.Error(err))
	}
	return content
}

func (s *storyService) ArchiveDigest(ctx context.Context) string {
	if cached, err := s.cache.GetDigest(ctx); err == nil && cached != "" {
		return cached
	}

	digest, err := s.RefreshArchiveDigest(ctx)
	if err != nil {
		s.logger.Warn("Failed to build archive digest, using fallback", zap.Error(err))
		return lore.FallbackArchives
	}
	if digest == "" {
		return lore.FallbackArchives
	}
	return digest
}

func (s *storyService) RefreshArchiveDigest(ctx context.Context) (string, error) {
	logs, err := s.gameLogs.ListRecent(ctx, s.digestSize)
	if err != nil {
		return "", fmt.Errorf("failed to list recent game logs: %w", err)
	}

	digest := BuildArchiveDigest(logs)
	if digest == "" {
		return "", nil
	}

	if err := s.cache.SetDigest(ctx, digest, s.cacheTTL); err != nil {
		s.logger.Debug("Failed to cache archive digest", zap.Error(err))
	}
	return digest, nil
}

func (s *storyService) LastSummary(ctx context.Context, characterName string) (*models.GameLog, error) {
	return s.gameLogs.LastForCharacter(ctx, characterName)
}

func (s *storyService) SummariesFor(ctx context.Context, characterName string) ([]models.ArchiveEntry, error) {
	logs, err := s.gameLogs.ListForCharacter(ctx, characterName, s.digestSize)
	if err != nil {
		return nil, err
	}
	entries := make([]models.ArchiveEntry, 0, len(logs))
	for _, log := range logs {
		entries = append(entries, models.ArchiveEntry{
			Timestamp: log.CreatedAt,
			Text:      log.Summary,
		})
	}
	return entries, nil
}

func (s *storyService) SaveSummary(ctx context.Context, userID uuid.UUID, characterName, summary string) error {
	log := &models.GameLog{
		CharacterName: characterName,
		Summary:       summary,
		CreatedAt:     s.now(),
	}
	if err := s.gameLogs.Save(ctx, log); err != nil {
		return err
	}

	// The digest rebuild is the worker's job; a publish failure only
	// delays the digest refresh until the cache TTL expires.
	event := messaging.ArchiveEventPayload{
		EventID:       uuid.New(),
		UserID:        userID,
		CharacterName: characterName,
		Timestamp:     log.CreatedAt,
	}
	if err := s.publisher.PublishArchiveEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish archive event",
			zap.String("characterName", characterName),
			zap.Error(err))
	}
	return nil
}

func (s *storyService) KnownCharacterNames(ctx context.Context) ([]string, error) {
	return s.gameLogs.KnownCharacterNames(ctx)
}

// BuildArchiveDigest flattens summaries into the "[date] name: summary"
// lines the lore chat receives, newest first. Shared with the digest
// worker.
func BuildArchiveDigest(logs []models.GameLog) string {
	if len(logs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, log := range logs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s: %s",
			log.CreatedAt.Format("2006-01-02"), log.CharacterName, log.Summary)
	}
	return b.String()
}
