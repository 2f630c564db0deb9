package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"realms-server/internal/models"
)

// ParseAdventureUpdate decodes and validates the model's turn response.
// A response missing the scene text, the image prompt or a sane option
// list is rejected so a broken generation never reaches the session
// state. Extra fields the model invents are ignored.
func ParseAdventureUpdate(raw string) (*models.AdventureUpdate, error) {
	cleaned := stripCodeFence(raw)

	var update models.AdventureUpdate
	if err := json.Unmarshal([]byte(cleaned), &update); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
	}

	if strings.TrimSpace(update.Text) == "" {
		return nil, fmt.Errorf("%w: missing scene text", models.ErrMalformedResponse)
	}
	if strings.TrimSpace(update.ImagePrompt) == "" {
		return nil, fmt.Errorf("%w: missing image prompt", models.ErrMalformedResponse)
	}
	if len(update.Options) < 3 || len(update.Options) > 4 {
		return nil, fmt.Errorf("%w: expected 3 or 4 options, got %d", models.ErrMalformedResponse, len(update.Options))
	}
	for i, opt := range update.Options {
		if strings.TrimSpace(opt) == "" {
			return nil, fmt.Errorf("%w: option %d is empty", models.ErrMalformedResponse, i)
		}
	}
	if update.InventoryUpdate.Add == nil {
		update.InventoryUpdate.Add = []string{}
	}
	if update.InventoryUpdate.Remove == nil {
		update.InventoryUpdate.Remove = []string{}
	}

	return &update, nil
}

// stripCodeFence removes a markdown ```json fence when the model wraps
// its JSON in one despite the instructions.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
