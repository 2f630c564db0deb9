package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"realms-server/internal/messaging"
)

// Mock ArchiveEventPublisher
type ArchiveEventPublisher struct {
	mock.Mock
}

func (m *ArchiveEventPublisher) PublishArchiveEvent(ctx context.Context, payload messaging.ArchiveEventPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
