package models

// SessionView is the state of the session router's state machine. It is
// never persisted; it is reconstructed from user + character + budget.
type SessionView string

const (
	ViewLanding        SessionView = "landing"
	ViewCheckingLimits SessionView = "checking_limits"
	ViewGame           SessionView = "game"
	ViewCampsite       SessionView = "campsite"
)
