package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"realms-server/internal/models"
)

// imageStyleSuffix is appended to every scene image prompt so the
// illustrations stay in one visual register across a session.
const imageStyleSuffix = ", digital painting, dark fantasy, painterly, dramatic lighting, no text"

const adventureSystemPromptTemplate = `You are the game master of a text adventure set in the world described below. The player is the adventurer %s.

WORLD:
%s

CHRONICLES OF PAST ADVENTURERS:
%s

RULES:
- Continue the story from the history the player sends you. React to the player's latest choice.
- Keep each scene to two or three paragraphs, written in the second person.
- Always respond with a single JSON object and nothing else. The object must have exactly these fields:
  "text": string, the next scene.
  "options": array of 3 or 4 short strings, the actions the player can take next.
  "imagePrompt": string, a one-sentence visual description of the scene in English.
  "inventoryUpdate": object with "add" and "remove" string arrays. Use empty arrays when the inventory does not change. Never add an item the player already carries.
  "questUpdate": string or null. Set it only when the player's current objective changes.
- The current quest is: %s
- The player's inventory: %s
- Stay consistent with the world and with everything that already happened.`

// AdventureSystemPrompt builds the game-master system prompt for one
// turn. The archive digest keeps new sessions consistent with what
// earlier adventurers already did to the world.
func AdventureSystemPrompt(characterName, worldLore, archiveDigest, quest string, inventory []string) string {
	inv := "empty"
	if len(inventory) > 0 {
		inv = strings.Join(inventory, ", ")
	}
	return fmt.Sprintf(adventureSystemPromptTemplate, characterName, worldLore, archiveDigest, quest, inv)
}

// turnPayload is what the model receives as user input: the recent
// history window plus the choice being played.
type turnPayload struct {
	History []models.HistoryEntry `json:"history"`
	Choice  string                `json:"choice"`
}

// AdventureUserInput serializes the history window and the player's
// choice. An empty window with an "I awaken..."-style choice starts a
// fresh adventure.
func AdventureUserInput(window []models.HistoryEntry, choice string) (string, error) {
	payload := turnPayload{History: window, Choice: choice}
	if payload.History == nil {
		payload.History = []models.HistoryEntry{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize turn payload: %w", err)
	}
	return string(data), nil
}

// OpeningChoice is the synthetic choice that kicks off a new adventure.
func OpeningChoice(characterName string) string {
	return fmt.Sprintf("I am %s. I open my eyes at the edge of Aethelgard, ready to begin my journey.", characterName)
}

const summarySystemPrompt = `You are a chronicler. The user sends you the transcript of one play session of a text adventure. Write a summary of the session in 3 to 5 sentences, in the past tense, third person, naming the adventurer. Mention how the session ended. Respond with plain text only, no JSON, no headings.`

// SummarySystemPrompt returns the chronicler prompt used when a session
// is archived.
func SummarySystemPrompt() string {
	return summarySystemPrompt
}

// endOfAdventureMark closes the transcript handed to the chronicler so
// the summary reflects that the session was concluded deliberately.
const endOfAdventureMark = "End of the adventure."

// SummaryTranscript flattens a session's history into the transcript
// the chronicler summarizes.
func SummaryTranscript(characterName string, history []models.HistoryEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Adventurer: %s\n\n", characterName)
	for _, entry := range history {
		b.WriteString(entry.Text)
		b.WriteString("\n")
		if entry.Choice != "" {
			fmt.Fprintf(&b, "> %s\n", entry.Choice)
		}
		b.WriteString("\n")
	}
	b.WriteString(endOfAdventureMark)
	return b.String()
}

const chatSystemPromptTemplate = `You are the Keeper of the Archive, an ancient spirit who answers travelers' questions about the world of Aethelgard. Answer in character: knowing, a little weary, never breaking the fiction. Keep answers short, a paragraph or two. You only know what is written below; when asked about something outside it, admit the archive is silent on the matter.

WORLD:
%s

CHRONICLES OF PAST ADVENTURERS:
%s`

// ChatSystemPrompt builds the lore-oracle prompt from the world lore
// and the archive digest.
func ChatSystemPrompt(worldLore, archiveDigest string) string {
	return fmt.Sprintf(chatSystemPromptTemplate, worldLore, archiveDigest)
}

// ChatUserInput serializes the chat history with the newest message
// last, the way the model expects a conversation.
func ChatUserInput(history []models.ChatMessage, message string) (string, error) {
	type chatPayload struct {
		History []models.ChatMessage `json:"history"`
		Message string               `json:"message"`
	}
	payload := chatPayload{History: history, Message: message}
	if payload.History == nil {
		payload.History = []models.ChatMessage{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize chat payload: %w", err)
	}
	return string(data), nil
}

// ImagePrompt decorates the model's scene description with the shared
// style suffix.
func ImagePrompt(scenePrompt string) string {
	return strings.TrimSpace(scenePrompt) + imageStyleSuffix
}
