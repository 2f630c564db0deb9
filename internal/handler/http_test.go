package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"realms-server/internal/middleware"
	"realms-server/internal/models"
	"realms-server/internal/service"
	"realms-server/internal/service/mocks"
)

const testJWTSecret = "test-secret"

type handlerFixture struct {
	router   *gin.Engine
	sessions *mocks.SessionService
	limits   *mocks.LimitService
	story    *mocks.StoryService
	chat     *mocks.ChatService
	userID   uuid.UUID
	token    string
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := new(mocks.SessionService)
	limits := new(mocks.LimitService)
	story := new(mocks.StoryService)
	chat := new(mocks.ChatService)

	verifier, err := middleware.NewJWTVerifier(testJWTSecret, zap.NewNop())
	require.NoError(t, err)

	h := NewRealmsHandler(sessions, limits, story, chat, verifier, zap.NewNop())
	router := gin.New()
	h.RegisterRoutes(router)

	userID := uuid.New()
	return &handlerFixture{
		router:   router,
		sessions: sessions,
		limits:   limits,
		story:    story,
		chat:     chat,
		userID:   userID,
		token:    signTestToken(t, userID, time.Now().Add(time.Hour)),
	}
}

func signTestToken(t *testing.T, userID uuid.UUID, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func (f *handlerFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RejectsMissingToken(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_RejectsExpiredToken(t *testing.T) {
	f := newHandlerFixture(t)
	expired := signTestToken(t, f.userID, time.Now().Add(-time.Hour))

	rec := f.do(t, http.MethodGet, "/session", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestHandler_RejectsForeignSignature(t *testing.T) {
	f := newHandlerFixture(t)

	claims := jwt.RegisteredClaims{
		Subject:   f.userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/session", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_GetSession(t *testing.T) {
	f := newHandlerFixture(t)
	f.sessions.On("Snapshot", mock.Anything, f.userID).Return(&service.SessionSnapshot{
		View:              models.ViewLanding,
		RemainingRequests: 5,
	}, nil).Once()

	rec := f.do(t, http.MethodGet, "/session", f.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap service.SessionSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, models.ViewLanding, snap.View)
	assert.Equal(t, 5, snap.RemainingRequests)
	f.sessions.AssertExpectations(t)
}

func TestHandler_StartAdventure(t *testing.T) {
	f := newHandlerFixture(t)
	f.sessions.On("StartAdventure", mock.Anything, f.userID, "Rowan").Return(&service.SessionSnapshot{
		View:          models.ViewGame,
		CharacterName: "Rowan",
	}, nil).Once()

	rec := f.do(t, http.MethodPost, "/session/start", f.token, gin.H{"characterName": "Rowan"})
	require.Equal(t, http.StatusOK, rec.Code)
	f.sessions.AssertExpectations(t)
}

func TestHandler_StartAdventure_MissingName(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/session/start", f.token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.sessions.AssertNotCalled(t, "StartAdventure", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_SubmitChoice_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"no session", models.ErrNoActiveSession, http.StatusNotFound},
		{"budget exhausted", models.ErrBudgetExhausted, http.StatusConflict},
		{"turn in flight", models.ErrTurnInFlight, http.StatusConflict},
		{"wrong view", models.ErrWrongView, http.StatusConflict},
		{"empty history", models.ErrEmptyHistory, http.StatusBadRequest},
		{"generation failed", models.ErrGenerationFailed, http.StatusBadGateway},
		{"malformed response", models.ErrMalformedResponse, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newHandlerFixture(t)
			f.sessions.On("SubmitChoice", mock.Anything, f.userID, "North").Return(nil, tc.serviceErr).Once()

			rec := f.do(t, http.MethodPost, "/session/choice", f.token, gin.H{"choice": "North"})
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestHandler_SubmitChoice_GenerationFailureHidesDetail(t *testing.T) {
	f := newHandlerFixture(t)
	f.sessions.On("SubmitChoice", mock.Anything, f.userID, "North").
		Return(nil, models.ErrGenerationFailed).Once()

	rec := f.do(t, http.MethodPost, "/session/choice", f.token, gin.H{"choice": "North"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "The narrator is silent. Try again.")
}

func TestHandler_EndSession_ContinueFlag(t *testing.T) {
	f := newHandlerFixture(t)
	f.sessions.On("EndSession", mock.Anything, f.userID, true).Return(&service.SessionSnapshot{
		View: models.ViewGame,
	}, nil).Once()

	rec := f.do(t, http.MethodPost, "/session/end", f.token, gin.H{"continue": true})
	require.Equal(t, http.StatusOK, rec.Code)
	f.sessions.AssertExpectations(t)
}

func TestHandler_EndSession_NoBodyMeansLanding(t *testing.T) {
	f := newHandlerFixture(t)
	f.sessions.On("EndSession", mock.Anything, f.userID, false).Return(&service.SessionSnapshot{
		View: models.ViewLanding,
	}, nil).Once()

	rec := f.do(t, http.MethodPost, "/session/end", f.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f.sessions.AssertExpectations(t)
}

func TestHandler_Logout(t *testing.T) {
	f := newHandlerFixture(t)
	f.sessions.On("Logout", mock.Anything, f.userID).Return(nil).Once()

	rec := f.do(t, http.MethodPost, "/session/logout", f.token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_GetLimits(t *testing.T) {
	f := newHandlerFixture(t)
	reset := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	limit := &models.UserLimit{UserID: f.userID, RequestCount: 4}
	f.limits.On("GetLimits", mock.Anything, f.userID).Return(limit, nil).Once()
	f.limits.On("NextResetTime", limit).Return(reset).Once()

	rec := f.do(t, http.MethodGet, "/limits", f.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp limitsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.RemainingRequests)
	assert.True(t, resp.NextResetTime.Equal(reset))
}

func TestHandler_GrantReward(t *testing.T) {
	f := newHandlerFixture(t)
	limit := &models.UserLimit{UserID: f.userID, RequestCount: 10}
	f.limits.On("GrantReward", mock.Anything, f.userID).Return(limit, nil).Once()
	f.limits.On("NextResetTime", limit).Return(time.Now().Add(12 * time.Hour)).Once()

	rec := f.do(t, http.MethodPost, "/limits/reward", f.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp limitsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 10, resp.RemainingRequests)
}

func TestHandler_GetLore(t *testing.T) {
	f := newHandlerFixture(t)
	f.story.On("WorldLore", mock.Anything).Return("A realm of mist.").Once()

	rec := f.do(t, http.MethodGet, "/lore", f.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "A realm of mist.")
}

func TestHandler_ListArchives(t *testing.T) {
	f := newHandlerFixture(t)
	f.story.On("KnownCharacterNames", mock.Anything).Return([]string{"Rowan", "Mira"}, nil).Once()
	f.story.On("ArchiveDigest", mock.Anything).Return("[2025-06-01] Rowan: found the tower.").Once()

	rec := f.do(t, http.MethodGet, "/archives", f.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp archivesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Rowan", "Mira"}, resp.Characters)
	assert.NotEmpty(t, resp.Digest)
}

func TestHandler_GetCharacterArchive(t *testing.T) {
	f := newHandlerFixture(t)
	f.story.On("SummariesFor", mock.Anything, "Rowan").Return([]models.ArchiveEntry{
		{Timestamp: time.Now(), Text: "Rowan found the tower."},
	}, nil).Once()

	rec := f.do(t, http.MethodGet, "/archives/Rowan", f.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp characterArchiveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Rowan", resp.CharacterName)
	require.Len(t, resp.Entries, 1)
}

func TestHandler_GetCharacterArchive_UnknownCharacter(t *testing.T) {
	f := newHandlerFixture(t)
	f.story.On("SummariesFor", mock.Anything, "Nobody").Return([]models.ArchiveEntry{}, nil).Once()

	rec := f.do(t, http.MethodGet, "/archives/Nobody", f.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
