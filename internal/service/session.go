package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realms-server/internal/ai"
	"realms-server/internal/lore"
	"realms-server/internal/models"
)

// CampsiteCountdown is the time left until the budget window resets,
// already broken down for display. Ready means the player can wake up.
type CampsiteCountdown struct {
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Ready   bool `json:"ready"`
}

// SessionSnapshot is the full client-facing session view: which screen
// to show and the data that screen needs.
type SessionSnapshot struct {
	View              models.SessionView `json:"view"`
	State             *models.GameState  `json:"state,omitempty"`
	Countdown         *CampsiteCountdown `json:"countdown,omitempty"`
	CharacterName     string             `json:"characterName,omitempty"`
	RemainingRequests int                `json:"remainingRequests"`
	NextResetTime     *time.Time         `json:"nextResetTime,omitempty"`
	KnownCharacters   []string           `json:"knownCharacters,omitempty"`
	BudgetExhausted   bool               `json:"budgetExhausted,omitempty"`
}

// session is one user's live adventure. All access goes through mu;
// starting latches concurrent start attempts out while the opening
// scene is being generated.
type session struct {
	mu       sync.Mutex
	userID   uuid.UUID
	state    models.GameState
	starting bool
	resting  bool
}

// SessionService routes each user between the landing screen, the
// running game and the campsite, and owns the session lifecycle from
// start to archive.
type SessionService interface {
	// Snapshot reports the user's current view without side effects
	// beyond the lazy budget reset.
	Snapshot(ctx context.Context, userID uuid.UUID) (*SessionSnapshot, error)
	// StartAdventure creates a session for the character and generates
	// the opening scene. A returning character gets their last chronicle
	// woven into the opening.
	StartAdventure(ctx context.Context, userID uuid.UUID, characterName string) (*SessionSnapshot, error)
	// SubmitChoice plays one choice in the running session.
	SubmitChoice(ctx context.Context, userID uuid.UUID, choice string) (*SessionSnapshot, error)
	// LongRest sends the party to the campsite without ending the
	// session.
	LongRest(ctx context.Context, userID uuid.UUID) (*SessionSnapshot, error)
	// WakeUp leaves the campsite once the budget window has reset.
	WakeUp(ctx context.Context, userID uuid.UUID) (*SessionSnapshot, error)
	// EndSession archives the adventure. With continueAfter the same
	// character immediately sets out again.
	EndSession(ctx context.Context, userID uuid.UUID, continueAfter bool) (*SessionSnapshot, error)
	// Logout drops the in-memory session without archiving it.
	Logout(ctx context.Context, userID uuid.UUID) error
}

type sessionService struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session

	turns    TurnEngine
	limits   LimitService
	story    StoryService
	aiClient ai.AIClient
	logger   *zap.Logger
	now      func() time.Time
}

var _ SessionService = (*sessionService)(nil)

func NewSessionService(turns TurnEngine, limits LimitService, story StoryService, aiClient ai.AIClient, logger *zap.Logger) SessionService {
	return &sessionService{
		sessions: make(map[uuid.UUID]*session),
		turns:    turns,
		limits:   limits,
		story:    story,
		aiClient: aiClient,
		logger:   logger.Named("SessionService"),
		now:      time.Now,
	}
}

func (s *sessionService) Snapshot(ctx context.Context, userID uuid.UUID) (*SessionSnapshot, error) {
	sess := s.lookup(userID)
	if sess == nil {
		return s.landingSnapshot(ctx, userID)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.starting {
		return &SessionSnapshot{View: models.ViewCheckingLimits, CharacterName: sess.state.CharacterName}, nil
	}
	return s.viewLocked(ctx, sess)
}

func (s *sessionService) StartAdventure(ctx context.Context, userID uuid.UUID, characterName string) (*SessionSnapshot, error) {
	characterName = strings.TrimSpace(characterName)
	if characterName == "" {
		return nil, models.ErrCharacterRequired
	}

	sess := s.obtain(userID)

	sess.mu.Lock()
	if sess.starting {
		sess.mu.Unlock()
		return nil, models.ErrTurnInFlight
	}
	if len(sess.state.History) > 0 {
		// An adventure is already running; report it instead of
		// silently discarding it.
		defer sess.mu.Unlock()
		return s.viewLocked(ctx, sess)
	}
	sess.starting = true
	sess.state = models.GameState{
		CharacterName: characterName,
		Quest:         lore.DefaultQuest,
		Inventory:     []string{},
	}
	sess.mu.Unlock()

	defer func() {
		sess.mu.Lock()
		sess.starting = false
		sess.mu.Unlock()
	}()

	limit, err := s.limits.GetLimits(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit.RequestCount <= 0 {
		// Straight to the campsite; the session keeps the character so
		// waking up resumes the start.
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return s.viewLocked(ctx, sess)
	}

	opening := ai.OpeningChoice(characterName)
	if last, lastErr := s.story.LastSummary(ctx, characterName); lastErr == nil && last != nil {
		opening = "Previously: " + last.Summary + "\n\n" + opening
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := s.turns.AdvanceTurn(ctx, userID, &sess.state, opening, true); err != nil {
		return nil, err
	}

	s.logger.Info("Adventure started",
		zap.String("userID", userID.String()),
		zap.String("characterName", characterName))
	return s.viewLocked(ctx, sess)
}

func (s *sessionService) SubmitChoice(ctx context.Context, userID uuid.UUID, choice string) (*SessionSnapshot, error) {
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return nil, models.ErrInvalidInput
	}

	sess := s.lookup(userID)
	if sess == nil {
		return nil, models.ErrNoActiveSession
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if len(sess.state.History) == 0 {
		return nil, models.ErrEmptyHistory
	}
	if sess.resting {
		return nil, models.ErrWrongView
	}
	if err := s.turns.AdvanceTurn(ctx, userID, &sess.state, choice, false); err != nil {
		return nil, err
	}
	return s.viewLocked(ctx, sess)
}

func (s *sessionService) LongRest(ctx context.Context, userID uuid.UUID) (*SessionSnapshot, error) {
	sess := s.lookup(userID)
	if sess == nil {
		return nil, models.ErrNoActiveSession
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.resting = true
	return s.viewLocked(ctx, sess)
}

func (s *sessionService) WakeUp(ctx context.Context, userID uuid.UUID) (*SessionSnapshot, error) {
	sess := s.lookup(userID)
	if sess == nil {
		return nil, models.ErrNoActiveSession
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	limit, err := s.limits.GetLimits(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit.RequestCount <= 0 {
		// The rest is not over yet; the campsite countdown stands.
		return s.viewLocked(ctx, sess)
	}

	sess.resting = false
	return s.viewLocked(ctx, sess)
}

func (s *sessionService) EndSession(ctx context.Context, userID uuid.UUID, continueAfter bool) (*SessionSnapshot, error) {
	sess := s.lookup(userID)
	if sess == nil {
		return nil, models.ErrNoActiveSession
	}

	sess.mu.Lock()
	if len(sess.state.History) == 0 {
		sess.mu.Unlock()
		return nil, models.ErrEmptyHistory
	}
	characterName := sess.state.CharacterName
	transcript := ai.SummaryTranscript(characterName, fullTranscript(sess.state.History))
	sess.mu.Unlock()

	temperature := 0.5
	maxTokens := 400
	summary, _, err := s.aiClient.GenerateText(ctx, userID.String(), ai.SummarySystemPrompt(), transcript, ai.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, err
	}

	if _, decErr := s.limits.Decrement(ctx, userID); decErr != nil {
		s.logger.Warn("Failed to decrement budget for session summary",
			zap.String("userID", userID.String()),
			zap.Error(decErr))
	}

	// The in-memory adventure is over regardless of whether the archive
	// write lands.
	sess.mu.Lock()
	sess.state = models.GameState{CharacterName: characterName, Quest: lore.DefaultQuest, Inventory: []string{}}
	sess.resting = false
	sess.mu.Unlock()

	if saveErr := s.story.SaveSummary(ctx, userID, characterName, summary); saveErr != nil {
		s.logger.Error("Failed to archive session summary",
			zap.String("characterName", characterName),
			zap.Error(saveErr))
		return nil, saveErr
	}

	s.logger.Info("Session archived",
		zap.String("userID", userID.String()),
		zap.String("characterName", characterName))

	if continueAfter {
		return s.StartAdventure(ctx, userID, characterName)
	}

	s.drop(userID)
	return s.landingSnapshot(ctx, userID)
}

func (s *sessionService) Logout(ctx context.Context, userID uuid.UUID) error {
	s.drop(userID)
	s.logger.Info("Session dropped on logout", zap.String("userID", userID.String()))
	return nil
}

// viewLocked derives the snapshot for an existing session. The caller
// holds sess.mu.
func (s *sessionService) viewLocked(ctx context.Context, sess *session) (*SessionSnapshot, error) {
	limit, err := s.limits.GetLimits(ctx, sess.userID)
	if err != nil {
		return nil, err
	}
	nextReset := s.limits.NextResetTime(limit)
	sess.state.RemainingRequests = limit.RequestCount
	sess.state.NextResetTime = &nextReset

	snapshot := &SessionSnapshot{
		CharacterName:     sess.state.CharacterName,
		RemainingRequests: limit.RequestCount,
		NextResetTime:     &nextReset,
	}

	// An exhausted budget only forces the campsite before the first
	// scene exists. Mid-adventure the player keeps the game view and
	// sees the final scene, with the exhaustion flagged as a warning;
	// the campsite waits for an explicit long rest.
	exhausted := limit.RequestCount <= 0
	if sess.resting || (exhausted && len(sess.state.History) == 0) {
		countdown := s.countdown(limit.RequestCount, nextReset)
		snapshot.View = models.ViewCampsite
		snapshot.Countdown = &countdown
		return snapshot, nil
	}

	stateCopy := sess.state
	snapshot.View = models.ViewGame
	snapshot.State = &stateCopy
	snapshot.BudgetExhausted = exhausted
	return snapshot, nil
}

func (s *sessionService) landingSnapshot(ctx context.Context, userID uuid.UUID) (*SessionSnapshot, error) {
	limit, err := s.limits.GetLimits(ctx, userID)
	if err != nil {
		return nil, err
	}
	nextReset := s.limits.NextResetTime(limit)

	known, err := s.story.KnownCharacterNames(ctx)
	if err != nil {
		// The landing screen works without the returning-character
		// list.
		s.logger.Warn("Failed to list known characters", zap.Error(err))
		known = nil
	}

	return &SessionSnapshot{
		View:              models.ViewLanding,
		RemainingRequests: limit.RequestCount,
		NextResetTime:     &nextReset,
		KnownCharacters:   known,
	}, nil
}

// countdown derives the campsite timer. It is a pure function of the
// reset deadline; nothing is stored.
func (s *sessionService) countdown(requestCount int, nextReset time.Time) CampsiteCountdown {
	if requestCount > 0 {
		return CampsiteCountdown{Ready: true}
	}
	remaining := nextReset.Sub(s.now())
	if remaining <= 0 {
		return CampsiteCountdown{Ready: true}
	}
	return CampsiteCountdown{
		Hours:   int(remaining / time.Hour),
		Minutes: int(remaining % time.Hour / time.Minute),
		Seconds: int(remaining % time.Minute / time.Second),
	}
}

func (s *sessionService) lookup(userID uuid.UUID) *session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[userID]
}

func (s *sessionService) obtain(userID uuid.UUID) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess
	}
	sess := &session{userID: userID}
	s.sessions[userID] = sess
	return sess
}

func (s *sessionService) drop(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// fullTranscript flattens the whole history for the chronicler,
// including the open segment.
func fullTranscript(history []models.StorySegment) []models.HistoryEntry {
	entries := make([]models.HistoryEntry, 0, len(history))
	for _, segment := range history {
		entry := models.HistoryEntry{Text: segment.Text}
		if segment.UserChoice != nil {
			entry.Choice = *segment.UserChoice
		}
		entries = append(entries, entry)
	}
	return entries
}
