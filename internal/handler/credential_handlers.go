package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"adventure-server/internal/models"
)

// SetCredential stores the player's completion-API credential. The value is
// write-only: no endpoint ever returns it.
func (h *AdventureHandler) SetCredential(c *gin.Context) {
	var req models.CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid credential request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrBadRequest.Error()})
		return
	}

	if err := h.service.SetCredential(c.Request.Context(), playerID(c), req.Credential); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveCredential deletes the stored credential together with the story
// generated under it.
func (h *AdventureHandler) RemoveCredential(c *gin.Context) {
	if err := h.service.RemoveCredential(c.Request.Context(), playerID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
