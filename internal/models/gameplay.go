package models

import "time"

// StorySegment is one step of the narrative. A segment without a UserChoice
// is the current, open segment; stamping the choice closes it.
type StorySegment struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	ImagePrompt string   `json:"imagePrompt"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
	Options     []string `json:"options"`
	UserChoice  *string  `json:"userChoice,omitempty"`
}

// HasImage reports whether image generation succeeded for this segment.
func (s *StorySegment) HasImage() bool {
	return s.ImageURL != nil && *s.ImageURL != ""
}

// GameState is the mutable per-session state owned by the session router.
// All mutations are serialized behind the session lock.
type GameState struct {
	History           []StorySegment `json:"history"`
	Inventory         []string       `json:"inventory"`
	Quest             string         `json:"quest"`
	IsLoading         bool           `json:"isLoading"`
	CharacterName     string         `json:"characterName"`
	RemainingRequests int            `json:"remainingRequests"`
	NextResetTime     *time.Time     `json:"nextResetTime,omitempty"`
}

// OpenSegment returns the last segment if it has not been closed by a
// user choice yet.
func (g *GameState) OpenSegment() *StorySegment {
	if len(g.History) == 0 {
		return nil
	}
	last := &g.History[len(g.History)-1]
	if last.UserChoice != nil {
		return nil
	}
	return last
}

// HistoryEntry is a compact {text, choice} pair sent to the narrative
// backend as context, and used for session transcripts.
type HistoryEntry struct {
	Text   string `json:"text"`
	Choice string `json:"choice"`
}

// InventoryDelta lists items the backend wants added to or removed from
// the player's inventory this turn.
type InventoryDelta struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// AdventureUpdate is the schema-validated payload returned by the
// narrative backend for one turn. InventoryUpdate is required by the
// schema; QuestUpdate is nil when the quest is unchanged.
type AdventureUpdate struct {
	Text            string         `json:"text"`
	Options         []string       `json:"options"`
	ImagePrompt     string         `json:"imagePrompt"`
	InventoryUpdate InventoryDelta `json:"inventoryUpdate"`
	QuestUpdate     *string        `json:"questUpdate"`
}

// ChatMessage is one exchange in the lore-oracle chat.
type ChatMessage struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// GameLog is a persisted end-of-session summary for a character.
type GameLog struct {
	CharacterName string    `json:"characterName" db:"character_name"`
	Summary       string    `json:"summary" db:"summary"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// ArchiveEntry is one summary as returned to clients browsing a
// character's past sessions.
type ArchiveEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}
