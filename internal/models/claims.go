package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the JWT claims this service consumes. The user ID travels
// in the standard "sub" claim as a UUID string.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID parses the subject claim as a user UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}
	return id, nil
}

// ContextKey is the type for context keys set by middleware.
type ContextKey string

// UserContextKey holds the authenticated user's UUID in request contexts.
const UserContextKey ContextKey = "user_id"
