package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"realms-server/internal/ai"
)

// Mock AIClient
type AIClient struct {
	mock.Mock
}

func (m *AIClient) GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params ai.GenerationParams) (string, ai.UsageInfo, error) {
	args := m.Called(ctx, userID, systemPrompt, userInput, params)
	usage, _ := args.Get(1).(ai.UsageInfo)
	return args.String(0), usage, args.Error(2)
}

func (m *AIClient) GenerateImage(ctx context.Context, userID string, prompt string) (string, error) {
	args := m.Called(ctx, userID, prompt)
	return args.String(0), args.Error(1)
}
