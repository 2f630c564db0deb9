package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"realms-server/internal/middleware"
)

type startAdventureRequest struct {
	CharacterName string `json:"characterName" binding:"required"`
}

type submitChoiceRequest struct {
	Choice string `json:"choice" binding:"required"`
}

type endSessionRequest struct {
	Continue bool `json:"continue"`
}

func (h *RealmsHandler) getSession(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	snapshot, err := h.sessions.Snapshot(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *RealmsHandler) startAdventure(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	var req startAdventureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "characterName is required"})
		return
	}

	snapshot, err := h.sessions.StartAdventure(c.Request.Context(), userID, req.CharacterName)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *RealmsHandler) submitChoice(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	var req submitChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "choice is required"})
		return
	}

	snapshot, err := h.sessions.SubmitChoice(c.Request.Context(), userID, req.Choice)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *RealmsHandler) longRest(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	snapshot, err := h.sessions.LongRest(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *RealmsHandler) wakeUp(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	snapshot, err := h.sessions.WakeUp(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *RealmsHandler) endSession(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	// The body is optional; absence means "end and return to landing".
	var req endSessionRequest
	_ = c.ShouldBindJSON(&req)

	snapshot, err := h.sessions.EndSession(c.Request.Context(), userID, req.Continue)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *RealmsHandler) logout(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if err := h.sessions.Logout(c.Request.Context(), userID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
