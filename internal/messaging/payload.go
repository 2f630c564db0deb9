package messaging

import (
	"time"

	"github.com/google/uuid"
)

// ArchiveEventPayload is published whenever a session summary is saved.
// The digest worker consumes it and rebuilds the cached archive digest.
type ArchiveEventPayload struct {
	EventID       uuid.UUID `json:"event_id"`
	UserID        uuid.UUID `json:"user_id"`
	CharacterName string    `json:"character_name"`
	Timestamp     time.Time `json:"timestamp"`
}
