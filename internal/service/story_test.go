package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"realms-server/internal/lore"
	"realms-server/internal/messaging"
	msgmocks "realms-server/internal/messaging/mocks"
	"realms-server/internal/models"
	"realms-server/internal/repository/mocks"
)

const testDigestSize = 10

type storyFixture struct {
	svc       *storyService
	gameLogs  *mocks.GameLogRepository
	worldLore *mocks.WorldLoreRepository
	cache     *mocks.DigestCache
	publisher *msgmocks.ArchiveEventPublisher
}

func newStoryFixture(t *testing.T) *storyFixture {
	t.Helper()

	gameLogs := new(mocks.GameLogRepository)
	worldLore := new(mocks.WorldLoreRepository)
	cache := new(mocks.DigestCache)
	publisher := new(msgmocks.ArchiveEventPublisher)

	svc := NewStoryService(gameLogs, worldLore, cache, publisher, testDigestSize, 10*time.Minute, zap.NewNop()).(*storyService)
	return &storyFixture{svc: svc, gameLogs: gameLogs, worldLore: worldLore, cache: cache, publisher: publisher}
}

func TestStoryService_WorldLore_CacheHit(t *testing.T) {
	f := newStoryFixture(t)
	f.cache.On("GetLore", mock.Anything).Return("cached lore", nil).Once()

	assert.Equal(t, "cached lore", f.svc.WorldLore(context.Background()))
	f.worldLore.AssertNotCalled(t, "Latest", mock.Anything)
}

func TestStoryService_WorldLore_CacheMissFillsFromDatabase(t *testing.T) {
	f := newStoryFixture(t)
	f.cache.On("GetLore", mock.Anything).Return("", models.ErrNotFound).Once()
	f.worldLore.On("Latest", mock.Anything).Return("curated lore", nil).Once()
	f.cache.On("SetLore", mock.Anything, "curated lore", 10*time.Minute).Return(nil).Once()

	assert.Equal(t, "curated lore", f.svc.WorldLore(context.Background()))
	f.cache.AssertExpectations(t)
}

func TestStoryService_WorldLore_FallsBackWhenEmpty(t *testing.T) {
	f := newStoryFixture(t)
	f.cache.On("GetLore", mock.Anything).Return("", models.ErrNotFound)
	f.worldLore.On("Latest", mock.Anything).Return("", models.ErrNotFound)

	assert.Equal(t, lore.FallbackWorldLore, f.svc.WorldLore(context.Background()))
}

func TestStoryService_WorldLore_FallsBackOnStorageError(t *testing.T) {
	f := newStoryFixture(t)
	f.cache.On("GetLore", mock.Anything).Return("", errors.New("redis down"))
	f.worldLore.On("Latest", mock.Anything).Return("", errors.New("db down"))

	assert.Equal(t, lore.FallbackWorldLore, f.svc.WorldLore(context.Background()))
}

func TestStoryService_ArchiveDigest_CacheHit(t *testing.T) {
	f := newStoryFixture(t)
	f.cache.On("GetDigest", mock.Anything).Return("[2025-06-01] Rowan: found the tower.", nil).Once()

	assert.Equal(t, "[2025-06-01] Rowan: found the tower.", f.svc.ArchiveDigest(context.Background()))
	f.gameLogs.AssertNotCalled(t, "ListRecent", mock.Anything, mock.Anything)
}

func TestStoryService_ArchiveDigest_RebuildsOnMiss(t *testing.T) {
	f := newStoryFixture(t)
	f.cache.On("GetDigest", mock.Anything).Return("", models.ErrNotFound).Once()
	f.gameLogs.On("ListRecent", mock.Anything, testDigestSize).Return([]models.GameLog{
		{CharacterName: "Mira", Summary: "Mira bargained with the Pale Court.", CreatedAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)},
		{CharacterName: "Rowan", Summary: "Rowan found the tower.", CreatedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
	}, nil).Once()
	f.cache.On("SetDigest", mock.Anything, mock.Anything, 10*time.Minute).Return(nil).Once()

	digest := f.svc.ArchiveDigest(context.Background())
	assert.Equal(t, "[2025-06-02] Mira: Mira bargained with the Pale Court.\n[2025-06-01] Rowan: Rowan found the tower.", digest)
}

func TestStoryService_ArchiveDigest_FallsBackWhenArchiveEmpty(t *testing.T) {
	f := newStoryFixture(t)
	f.cache.On("GetDigest", mock.Anything).Return("", models.ErrNotFound)
	f.gameLogs.On("ListRecent", mock.Anything, testDigestSize).Return([]models.GameLog{}, nil)

	assert.Equal(t, lore.FallbackArchives, f.svc.ArchiveDigest(context.Background()))
	// An empty archive is not cached; the fallback is baked in.
	f.cache.AssertNotCalled(t, "SetDigest", mock.Anything, mock.Anything, mock.Anything)
}

func TestStoryService_SaveSummary_PublishesEvent(t *testing.T) {
	f := newStoryFixture(t)
	userID := uuid.New()
	now := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	f.gameLogs.On("Save", mock.Anything, mock.MatchedBy(func(log *models.GameLog) bool {
		return log.CharacterName == "Rowan" && log.Summary == "Rowan slept." && log.CreatedAt.Equal(now)
	})).Return(nil).Once()
	f.publisher.On("PublishArchiveEvent", mock.Anything, mock.MatchedBy(func(event messaging.ArchiveEventPayload) bool {
		return event.UserID == userID && event.CharacterName == "Rowan" && event.EventID != uuid.Nil
	})).Return(nil).Once()

	require.NoError(t, f.svc.SaveSummary(context.Background(), userID, "Rowan", "Rowan slept."))
	f.gameLogs.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestStoryService_SaveSummary_PublishFailureIsNotFatal(t *testing.T) {
	f := newStoryFixture(t)

	f.gameLogs.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	f.publisher.On("PublishArchiveEvent", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	assert.NoError(t, f.svc.SaveSummary(context.Background(), uuid.New(), "Rowan", "Rowan slept."))
}

func TestStoryService_SaveSummary_SaveFailureIsFatal(t *testing.T) {
	f := newStoryFixture(t)

	f.gameLogs.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	require.Error(t, f.svc.SaveSummary(context.Background(), uuid.New(), "Rowan", "Rowan slept."))
	f.publisher.AssertNotCalled(t, "PublishArchiveEvent", mock.Anything, mock.Anything)
}

func TestStoryService_SummariesFor(t *testing.T) {
	f := newStoryFixture(t)
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	f.gameLogs.On("ListForCharacter", mock.Anything, "Rowan", testDigestSize).Return([]models.GameLog{
		{CharacterName: "Rowan", Summary: "Rowan found the tower.", CreatedAt: created},
	}, nil).Once()

	entries, err := f.svc.SummariesFor(context.Background(), "Rowan")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, created, entries[0].Timestamp)
	assert.Equal(t, "Rowan found the tower.", entries[0].Text)
}

func TestBuildArchiveDigest_Empty(t *testing.T) {
	assert.Equal(t, "", BuildArchiveDigest(nil))
}
