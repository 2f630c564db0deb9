package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realms-server/internal/ai"
	"realms-server/internal/models"
)

// TurnEngine runs one story turn: prompt the narrative backend, vet
// the response, then fold the update into the session state. State is
// only mutated after the generation succeeded, so a failed turn can be
// retried with nothing lost.
type TurnEngine interface {
	// AdvanceTurn plays the given choice. The caller must hold the
	// session lock; initial marks the opening turn of a fresh
	// adventure, which bypasses the in-flight and budget guards.
	AdvanceTurn(ctx context.Context, userID uuid.UUID, state *models.GameState, choice string, initial bool) error
}

type turnEngine struct {
	aiClient      ai.AIClient
	limits        LimitService
	story         StoryService
	sampler       *ImageSampler
	logger        *zap.Logger
	historyWindow int
	now           func() time.Time
}

var _ TurnEngine = (*turnEngine)(nil)

func NewTurnEngine(aiClient ai.AIClient, limits LimitService, story StoryService, sampler *ImageSampler, historyWindow int, logger *zap.Logger) TurnEngine {
	return &turnEngine{
		aiClient:      aiClient,
		limits:        limits,
		story:         story,
		sampler:       sampler,
		logger:        logger.Named("TurnEngine"),
		historyWindow: historyWindow,
		now:           time.Now,
	}
}

func (e *turnEngine) AdvanceTurn(ctx context.Context, userID uuid.UUID, state *models.GameState, choice string, initial bool) error {
	if !initial {
		if state.IsLoading {
			return models.ErrTurnInFlight
		}
		limit, err := e.limits.GetLimits(ctx, userID)
		if err != nil {
			return err
		}
		if limit.RequestCount <= 0 {
			return models.ErrBudgetExhausted
		}
	}

	state.IsLoading = true
	defer func() { state.IsLoading = false }()

	// The image decision samples the pre-turn history: the gap counts
	// scenes already on screen, not the one being generated.
	illustrate := e.sampler.ShouldIllustrate(state.History)

	worldLore := e.story.WorldLore(ctx)
	archiveDigest := e.story.ArchiveDigest(ctx)
	systemPrompt := ai.AdventureSystemPrompt(state.CharacterName, worldLore, archiveDigest, state.Quest, state.Inventory)
	userInput, err := ai.AdventureUserInput(e.recentHistory(state), choice)
	if err != nil {
		return err
	}

	temperature := 0.8
	maxTokens := 1500
	raw, usage, err := e.aiClient.GenerateText(ctx, userID.String(), systemPrompt, userInput, ai.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return err
	}

	update, err := ai.ParseAdventureUpdate(raw)
	if err != nil {
		e.logger.Warn("Narrative backend returned a malformed turn",
			zap.String("userID", userID.String()),
			zap.Error(err))
		return err
	}

	// Generation succeeded; only now does the turn become irreversible.
	if open := state.OpenSegment(); open != nil {
		c := choice
		open.UserChoice = &c
	}

	remaining, err := e.limits.Decrement(ctx, userID)
	if err != nil {
		// The player already received their scene; losing the decrement
		// is cheaper than losing the turn.
		e.logger.Warn("Failed to decrement budget after a successful turn",
			zap.String("userID", userID.String()),
			zap.Error(err))
	}
	state.RemainingRequests = remaining

	var imageURL *string
	if illustrate {
		url, imgErr := e.aiClient.GenerateImage(ctx, userID.String(), ai.ImagePrompt(update.ImagePrompt))
		if imgErr != nil {
			// A missing illustration is cosmetic; the segment ships
			// text-only.
			e.logger.Warn("Image generation failed, continuing text-only",
				zap.String("userID", userID.String()),
				zap.Error(imgErr))
		} else {
			imageURL = &url
		}
	}

	state.Inventory = applyInventoryDelta(state.Inventory, update.InventoryUpdate)
	if update.QuestUpdate != nil && *update.QuestUpdate != "" {
		state.Quest = *update.QuestUpdate
	}

	state.History = append(state.History, models.StorySegment{
		ID:          fmt.Sprintf("seg-%d", e.now().UnixNano()),
		Text:        update.Text,
		ImagePrompt: update.ImagePrompt,
		ImageURL:    imageURL,
		Options:     update.Options,
	})

	e.logger.Info("Turn advanced",
		zap.String("userID", userID.String()),
		zap.String("characterName", state.CharacterName),
		zap.Int("historyLen", len(state.History)),
		zap.Bool("illustrated", imageURL != nil),
		zap.Int("remainingRequests", remaining),
		zap.Int("totalTokens", usage.TotalTokens))

	return nil
}

// recentHistory trims the history to the configured window of
// {text, choice} pairs that precede the choice being played.
func (e *turnEngine) recentHistory(state *models.GameState) []models.HistoryEntry {
	start := 0
	if len(state.History) > e.historyWindow {
		start = len(state.History) - e.historyWindow
	}
	window := make([]models.HistoryEntry, 0, len(state.History)-start)
	for _, segment := range state.History[start:] {
		entry := models.HistoryEntry{Text: segment.Text}
		if segment.UserChoice != nil {
			entry.Choice = *segment.UserChoice
		}
		window = append(window, entry)
	}
	return window
}

// applyInventoryDelta removes first, then adds without duplicating
// items the player already carries.
func applyInventoryDelta(inventory []string, delta models.InventoryDelta) []string {
	result := make([]string, 0, len(inventory)+len(delta.Add))

	removed := make(map[string]bool, len(delta.Remove))
	for _, item := range delta.Remove {
		removed[item] = true
	}
	for _, item := range inventory {
		if !removed[item] {
			result = append(result, item)
		}
	}

	held := make(map[string]bool, len(result))
	for _, item := range result {
		held[item] = true
	}
	for _, item := range delta.Add {
		if !held[item] {
			result = append(result, item)
			held[item] = true
		}
	}

	return result
}
