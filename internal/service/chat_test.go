package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	aimocks "realms-server/internal/ai/mocks"
	"realms-server/internal/models"
	"realms-server/internal/repository/mocks"
)

func newChatFixture(t *testing.T, requestCount int) (*chatService, *aimocks.AIClient, *mocks.UserLimitRepository, uuid.UUID) {
	t.Helper()

	aiClient := new(aimocks.AIClient)
	limitRepo := new(mocks.UserLimitRepository)
	userID := uuid.New()

	limitRepo.On("Get", mock.Anything, userID).Return(&models.UserLimit{
		UserID: userID, RequestCount: requestCount, LastResetAt: time.Now(),
	}, nil)
	limitRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	limits := NewLimitService(limitRepo, testDefaultLimit, testResetWindow, testRewardCount, zap.NewNop())
	story := &stubStoryService{worldLore: "The realm of test.", digest: "[2025-06-01] Rowan: found the tower."}
	svc := NewChatService(aiClient, limits, story, zap.NewNop()).(*chatService)
	return svc, aiClient, limitRepo, userID
}

func TestChatService_Send(t *testing.T) {
	svc, aiClient, _, userID := newChatFixture(t, 3)

	aiClient.On("GenerateText", mock.Anything, userID.String(),
		mock.MatchedBy(func(systemPrompt string) bool {
			// The oracle sees both the lore and the chronicle.
			return strings.Contains(systemPrompt, "The realm of test.") &&
				strings.Contains(systemPrompt, "Rowan: found the tower.")
		}),
		mock.Anything, mock.Anything).
		Return("The tower predates the Sundering.", aiUsage(90), nil).Once()

	reply, remaining, err := svc.Send(context.Background(), userID, nil, "What is the tower?")
	require.NoError(t, err)
	assert.Equal(t, "The tower predates the Sundering.", reply)
	assert.Equal(t, 2, remaining)
	aiClient.AssertExpectations(t)
}

func TestChatService_Send_EmptyMessage(t *testing.T) {
	svc, aiClient, _, userID := newChatFixture(t, 3)

	_, _, err := svc.Send(context.Background(), userID, nil, "   ")
	require.ErrorIs(t, err, models.ErrInvalidInput)
	aiClient.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_Send_BudgetExhausted(t *testing.T) {
	svc, aiClient, _, userID := newChatFixture(t, 0)

	_, _, err := svc.Send(context.Background(), userID, nil, "Tell me of the Veil.")
	require.ErrorIs(t, err, models.ErrBudgetExhausted)
	aiClient.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_Send_GenerationFailureDoesNotCharge(t *testing.T) {
	svc, aiClient, limitRepo, userID := newChatFixture(t, 3)

	aiClient.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", aiUsage(0), errors.New("upstream timeout")).Once()

	_, remaining, err := svc.Send(context.Background(), userID, nil, "Who rules the Pale Court?")
	require.Error(t, err)
	assert.Equal(t, 3, remaining)
	limitRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestChatService_Send_CarriesHistory(t *testing.T) {
	svc, aiClient, _, userID := newChatFixture(t, 3)

	history := []models.ChatMessage{
		{Role: "user", Text: "Who guards the Emberwatch?"},
		{Role: "model", Text: "The last wardens of the old order."},
	}

	aiClient.On("GenerateText", mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(userInput string) bool {
			return strings.Contains(userInput, "Who guards the Emberwatch?") &&
				strings.Contains(userInput, "And who pays them?")
		}),
		mock.Anything).
		Return("No one pays them. They stay out of oath.", aiUsage(70), nil).Once()

	reply, _, err := svc.Send(context.Background(), userID, history, "And who pays them?")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
	aiClient.AssertExpectations(t)
}
