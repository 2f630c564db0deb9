package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"realms-server/internal/middleware"
)

type limitsResponse struct {
	RemainingRequests int       `json:"remainingRequests"`
	NextResetTime     time.Time `json:"nextResetTime"`
}

func (h *RealmsHandler) getLimits(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	limit, err := h.limits.GetLimits(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, limitsResponse{
		RemainingRequests: limit.RequestCount,
		NextResetTime:     h.limits.NextResetTime(limit),
	})
}

func (h *RealmsHandler) grantReward(c *gin.Context) {
	userID, err := middleware.UserIDFromContext(c)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	limit, err := h.limits.GrantReward(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, limitsResponse{
		RemainingRequests: limit.RequestCount,
		NextResetTime:     h.limits.NextResetTime(limit),
	})
}
