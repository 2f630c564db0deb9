package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"realms-server/internal/models"
	"realms-server/internal/service"
)

// Mock LimitService
type LimitService struct {
	mock.Mock
}

func (m *LimitService) GetLimits(ctx context.Context, userID uuid.UUID) (*models.UserLimit, error) {
	args := m.Called(ctx, userID)
	limit, _ := args.Get(0).(*models.UserLimit)
	return limit, args.Error(1)
}

func (m *LimitService) Decrement(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *LimitService) GrantReward(ctx context.Context, userID uuid.UUID) (*models.UserLimit, error) {
	args := m.Called(ctx, userID)
	limit, _ := args.Get(0).(*models.UserLimit)
	return limit, args.Error(1)
}

func (m *LimitService) NextResetTime(limit *models.UserLimit) time.Time {
	args := m.Called(limit)
	t, _ := args.Get(0).(time.Time)
	return t
}

// Mock StoryService
type StoryService struct {
	mock.Mock
}

func (m *StoryService) WorldLore(ctx context.Context) string {
	args := m.Called(ctx)
	return args.String(0)
}

func (m *StoryService) ArchiveDigest(ctx context.Context) string {
	args := m.Called(ctx)
	return args.String(0)
}

func (m *StoryService) RefreshArchiveDigest(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *StoryService) LastSummary(ctx context.Context, characterName string) (*models.GameLog, error) {
	args := m.Called(ctx, characterName)
	log, _ := args.Get(0).(*models.GameLog)
	return log, args.Error(1)
}

func (m *StoryService) SummariesFor(ctx context.Context, characterName string) ([]models.ArchiveEntry, error) {
	args := m.Called(ctx, characterName)
	entries, _ := args.Get(0).([]models.ArchiveEntry)
	return entries, args.Error(1)
}

func (m *StoryService) SaveSummary(ctx context.Context, userID uuid.UUID, characterName, summary string) error {
	args := m.Called(ctx, userID, characterName, summary)
	return args.Error(0)
}

func (m *StoryService) KnownCharacterNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

// Mock TurnEngine
type TurnEngine struct {
	mock.Mock
}

func (m *TurnEngine) AdvanceTurn(ctx context.Context, userID uuid.UUID, state *models.GameState, choice string, initial bool) error {
	args := m.Called(ctx, userID, state, choice, initial)
	return args.Error(0)
}

// Mock SessionService
type SessionService struct {
	mock.Mock
}

func (m *SessionService) Snapshot(ctx context.Context, userID uuid.UUID) (*service.SessionSnapshot, error) {
	args := m.Called(ctx, userID)
	snapshot, _ := args.Get(0).(*service.SessionSnapshot)
	return snapshot, args.Error(1)
}

func (m *SessionService) StartAdventure(ctx context.Context, userID uuid.UUID, characterName string) (*service.SessionSnapshot, error) {
	args := m.Called(ctx, userID, characterName)
	snapshot, _ := args.Get(0).(*service.SessionSnapshot)
	return snapshot, args.Error(1)
}

func (m *SessionService) SubmitChoice(ctx context.Context, userID uuid.UUID, choice string) (*service.SessionSnapshot, error) {
	args := m.Called(ctx, userID, choice)
	snapshot, _ := args.Get(0).(*service.SessionSnapshot)
	return snapshot, args.Error(1)
}

func (m *SessionService) LongRest(ctx context.Context, userID uuid.UUID) (*service.SessionSnapshot, error) {
	args := m.Called(ctx, userID)
	snapshot, _ := args.Get(0).(*service.SessionSnapshot)
	return snapshot, args.Error(1)
}

func (m *SessionService) WakeUp(ctx context.Context, userID uuid.UUID) (*service.SessionSnapshot, error) {
	args := m.Called(ctx, userID)
	snapshot, _ := args.Get(0).(*service.SessionSnapshot)
	return snapshot, args.Error(1)
}

func (m *SessionService) EndSession(ctx context.Context, userID uuid.UUID, continueAfter bool) (*service.SessionSnapshot, error) {
	args := m.Called(ctx, userID, continueAfter)
	snapshot, _ := args.Get(0).(*service.SessionSnapshot)
	return snapshot, args.Error(1)
}

func (m *SessionService) Logout(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// Mock ChatService
type ChatService struct {
	mock.Mock
}

func (m *ChatService) Send(ctx context.Context, userID uuid.UUID, history []models.ChatMessage, message string) (string, int, error) {
	args := m.Called(ctx, userID, history, message)
	return args.String(0), args.Int(1), args.Error(2)
}
