package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"adventure-server/internal/models"
)

// Session returns the player ID behind the current session. The middleware
// has already issued a cookie if the browser had none.
func (h *AdventureHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, models.SessionResponse{PlayerID: playerID(c).String()})
}

// GetAdventure returns the current adventure state.
func (h *AdventureHandler) GetAdventure(c *gin.Context) {
	adventure, authenticated, err := h.service.GetState(c.Request.Context(), playerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewAdventureResponse(adventure, authenticated))
}

// Initialize resumes the player's adventure, auto-starting a story when a
// credential is stored but no story exists yet. The page calls this on load.
func (h *AdventureHandler) Initialize(c *gin.Context) {
	adventure, authenticated, err := h.service.Initialize(c.Request.Context(), playerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewAdventureResponse(adventure, authenticated))
}

// NewAdventure starts a fresh story, discarding the current one.
func (h *AdventureHandler) NewAdventure(c *gin.Context) {
	adventure, err := h.service.BeginStory(c.Request.Context(), playerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewAdventureResponse(adventure, true))
}

// Choice advances the story with the selected option.
func (h *AdventureHandler) Choice(c *gin.Context) {
	var req models.ChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid choice request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrBadRequest.Error()})
		return
	}

	adventure, err := h.service.ChooseOption(c.Request.Context(), playerID(c), *req.Index)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewAdventureResponse(adventure, true))
}

// Retry replays the action whose completion call last failed.
func (h *AdventureHandler) Retry(c *gin.Context) {
	adventure, err := h.service.Retry(c.Request.Context(), playerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewAdventureResponse(adventure, true))
}
