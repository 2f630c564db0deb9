package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"realms-server/internal/middleware"
	"realms-server/internal/models"
	"realms-server/internal/service"
)

// APIError is the standardized error response body.
type APIError struct {
	Message string `json:"message"`
}

// RealmsHandler serves the session, limits, archive and chat HTTP API.
type RealmsHandler struct {
	sessions service.SessionService
	limits   service.LimitService
	story    service.StoryService
	chat     service.ChatService
	verifier *middleware.JWTVerifier
	logger   *zap.Logger
}

func NewRealmsHandler(
	sessions service.SessionService,
	limits service.LimitService,
	story service.StoryService,
	chat service.ChatService,
	verifier *middleware.JWTVerifier,
	logger *zap.Logger,
) *RealmsHandler {
	return &RealmsHandler{
		sessions: sessions,
		limits:   limits,
		story:    story,
		chat:     chat,
		verifier: verifier,
		logger:   logger.Named("RealmsHandler"),
	}
}

// RegisterRoutes wires all authenticated routes onto the router.
func (h *RealmsHandler) RegisterRoutes(router *gin.Engine) {
	auth := middleware.AuthMiddleware(h.verifier, h.logger)

	sessionGroup := router.Group("/session", auth)
	{
		sessionGroup.GET("", h.getSession)
		sessionGroup.POST("/start", h.startAdventure)
		sessionGroup.POST("/choice", h.submitChoice)
		sessionGroup.POST("/rest", h.longRest)
		sessionGroup.POST("/wake", h.wakeUp)
		sessionGroup.POST("/end", h.endSession)
		sessionGroup.POST("/logout", h.logout)
	}

	limitsGroup := router.Group("/limits", auth)
	{
		limitsGroup.GET("", h.getLimits)
		limitsGroup.POST("/reward", h.grantReward)
	}

	archiveGroup := router.Group("", auth)
	{
		archiveGroup.GET("/lore", h.getLore)
		archiveGroup.GET("/archives", h.listArchives)
		archiveGroup.GET("/archives/:characterName", h.getCharacterArchive)
	}

	router.GET("/ws/chat", auth, h.chatWebSocket)
}

func (h *RealmsHandler) handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var apiErr APIError

	switch {
	case errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		apiErr = APIError{Message: "Unauthorized"}
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: "Resource not found"}
	case errors.Is(err, models.ErrNoActiveSession):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrBudgetExhausted):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrTurnInFlight):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrWrongView):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrCharacterRequired),
		errors.Is(err, models.ErrEmptyHistory),
		errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrGenerationFailed),
		errors.Is(err, models.ErrMalformedResponse):
		statusCode = http.StatusBadGateway
		apiErr = APIError{Message: "The narrator is silent. Try again."}
	default:
		h.logger.Error("Unhandled service error", zap.Error(err))
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error"}
	}

	c.JSON(statusCode, apiErr)
}
