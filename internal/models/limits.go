package models

import (
	"time"

	"github.com/google/uuid"
)

// UserLimit is the persisted request-budget record, one per user.
// LastResetAt marks when the current budget window was (re)opened; the
// window expires ResetWindow later.
type UserLimit struct {
	UserID       uuid.UUID `json:"userId" db:"user_id"`
	RequestCount int       `json:"request_count" db:"request_count"`
	LastResetAt  time.Time `json:"last_reset_at" db:"last_reset_at"`
}
