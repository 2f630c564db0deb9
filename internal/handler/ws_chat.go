package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"realms-server/internal/middleware"
	"realms-server/internal/models"
)

const (
	// Time allowed to write a message to the client.
	chatWriteWait = 10 * time.Second
	// Time allowed to read the next message from the client. Chat turns
	// are slow because generation is, so the deadline is generous.
	chatReadWait = 5 * time.Minute
	// Maximum incoming message size.
	chatMaxMessageSize = 8192
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The token already authenticates the connection; the widget is
	// served from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// chatRequest is one incoming widget message with its local history.
type chatRequest struct {
	History []models.ChatMessage `json:"history"`
	Message string               `json:"message"`
}

// chatResponse is the oracle's reply.
type chatResponse struct {
	Reply             string `json:"reply"`
	RemainingRequests int    `json:"remainingRequests"`
	Error             string `json:"error,omitempty"`
}

// chatWebSocket upgrades the connection and answers lore questions
// until the client hangs up. One request in flight per connection.
func (h *RealmsHandler) chatWebSocket(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	conn, err := chatUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade chat connection",
			zap.String("userID", userID.String()),
			zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.logger.With(zap.String("userID", userID.String()))
	log.Info("Chat connection established")

	conn.SetReadLimit(chatMaxMessageSize)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(chatReadWait))

		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("Chat read error", zap.Error(err))
			} else {
				log.Info("Chat connection closed")
			}
			return
		}

		reply, remaining, err := h.chat.Send(c.Request.Context(), userID, req.History, req.Message)
		resp := chatResponse{Reply: reply, RemainingRequests: remaining}
		if err != nil {
			log.Warn("Chat reply failed", zap.Error(err))
			resp.Error = chatErrorMessage(err)
		}

		_ = conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
		if err := conn.WriteJSON(resp); err != nil {
			log.Warn("Chat write error", zap.Error(err))
			return
		}
	}
}

// chatErrorMessage keeps the fiction; the widget shows this verbatim.
func chatErrorMessage(err error) string {
	if errors.Is(err, models.ErrBudgetExhausted) {
		return "The Keeper is weary. Rest, and return when the day turns."
	}
	return "The Keeper does not answer. Ask again later."
}
