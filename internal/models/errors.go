package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound = errors.New("resource not found")

	// Authentication Errors
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// Session & Turn Errors
	ErrNoActiveSession   = errors.New("no active session for user")
	ErrCharacterRequired = errors.New("character name is required")
	ErrTurnInFlight      = errors.New("a turn is already in flight")
	ErrBudgetExhausted   = errors.New("request budget exhausted, a long rest is required")
	ErrEmptyHistory      = errors.New("session history is empty")
	ErrWrongView         = errors.New("action is not allowed in the current view")

	// Generation Errors
	ErrGenerationFailed  = errors.New("narrative generation failed")
	ErrImageGeneration   = errors.New("image generation failed")
	ErrMalformedResponse = errors.New("generation response is malformed")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidInput   = errors.New("invalid input data")
)
