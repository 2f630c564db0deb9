package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"realms-server/internal/models"
)

type loreResponse struct {
	WorldLore string `json:"worldLore"`
}

type archivesResponse struct {
	Digest     string   `json:"digest"`
	Characters []string `json:"characters"`
}

type characterArchiveResponse struct {
	CharacterName string                `json:"characterName"`
	Entries       []models.ArchiveEntry `json:"entries"`
}

func (h *RealmsHandler) getLore(c *gin.Context) {
	c.JSON(http.StatusOK, loreResponse{
		WorldLore: h.story.WorldLore(c.Request.Context()),
	})
}

func (h *RealmsHandler) listArchives(c *gin.Context) {
	ctx := c.Request.Context()

	characters, err := h.story.KnownCharacterNames(ctx)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, archivesResponse{
		Digest:     h.story.ArchiveDigest(ctx),
		Characters: characters,
	})
}

func (h *RealmsHandler) getCharacterArchive(c *gin.Context) {
	characterName := c.Param("characterName")
	if characterName == "" {
		c.JSON(http.StatusBadRequest, APIError{Message: "characterName is required"})
		return
	}

	entries, err := h.story.SummariesFor(c.Request.Context(), characterName)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if len(entries) == 0 {
		h.handleServiceError(c, models.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, characterArchiveResponse{
		CharacterName: characterName,
		Entries:       entries,
	})
}
