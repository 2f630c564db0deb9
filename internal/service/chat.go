package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realms-server/internal/ai"
	"realms-server/internal/models"
)

// ChatService is the lore oracle behind the widget on the landing
// screen. Answers draw on the world lore and the archive digest, and
// each one costs a request from the same budget as story turns.
type ChatService interface {
	Send(ctx context.Context, userID uuid.UUID, history []models.ChatMessage, message string) (string, int, error)
}

type chatService struct {
	aiClient ai.AIClient
	limits   LimitService
	story    StoryService
	logger   *zap.Logger
}

var _ ChatService = (*chatService)(nil)

func NewChatService(aiClient ai.AIClient, limits LimitService, story StoryService, logger *zap.Logger) ChatService {
	return &chatService{
		aiClient: aiClient,
		limits:   limits,
		story:    story,
		logger:   logger.Named("ChatService"),
	}
}

func (s *chatService) Send(ctx context.Context, userID uuid.UUID, history []models.ChatMessage, message string) (string, int, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", 0, models.ErrInvalidInput
	}

	limit, err := s.limits.GetLimits(ctx, userID)
	if err != nil {
		return "", 0, err
	}
	if limit.RequestCount <= 0 {
		return "", 0, models.ErrBudgetExhausted
	}

	systemPrompt := ai.ChatSystemPrompt(s.story.WorldLore(ctx), s.story.ArchiveDigest(ctx))
	userInput, err := ai.ChatUserInput(history, message)
	if err != nil {
		return "", 0, err
	}

	temperature := 0.7
	maxTokens := 600
	reply, usage, err := s.aiClient.GenerateText(ctx, userID.String(), systemPrompt, userInput, ai.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", limit.RequestCount, err
	}

	remaining, decErr := s.limits.Decrement(ctx, userID)
	if decErr != nil {
		s.logger.Warn("Failed to decrement budget after chat reply",
			zap.String("userID", userID.String()),
			zap.Error(decErr))
		remaining = limit.RequestCount - 1
	}

	s.logger.Debug("Chat reply generated",
		zap.String("userID", userID.String()),
		zap.Int("totalTokens", usage.TotalTokens),
		zap.Int("remainingRequests", remaining))

	return reply, remaining, nil
}
