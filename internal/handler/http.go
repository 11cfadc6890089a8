// Package handler exposes the HTTP surface for the single-page client.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"adventure-server/internal/auth"
	"adventure-server/internal/models"
	"adventure-server/internal/service"
)

// AdventureHandler wires the adventure service to gin routes.
type AdventureHandler struct {
	service  service.AdventureService
	sessions *auth.SessionManager
	logger   *zap.Logger
}

// NewAdventureHandler creates the handler.
func NewAdventureHandler(svc service.AdventureService, sessions *auth.SessionManager, logger *zap.Logger) *AdventureHandler {
	return &AdventureHandler{
		service:  svc,
		sessions: sessions,
		logger:   logger.Named("AdventureHandler"),
	}
}

// RegisterRoutes attaches all API routes to the router. Every route runs
// behind the session middleware: a browser without a valid session cookie
// silently gets a fresh anonymous identity.
func (h *AdventureHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(h.SessionMiddleware())
	{
		api.POST("/session", h.Session)

		api.PUT("/credential", h.SetCredential)
		api.DELETE("/credential", h.RemoveCredential)

		adventure := api.Group("/adventure")
		{
			adventure.GET("", h.GetAdventure)
			adventure.POST("/initialize", h.Initialize)
			adventure.POST("/new", h.NewAdventure)
			adventure.POST("/choice", h.Choice)
			adventure.POST("/retry", h.Retry)
		}
	}
}

// respondError maps service errors to HTTP statuses. Unknown errors become a
// plain 500 so internals never leak to the browser.
func (h *AdventureHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := models.ErrInternalServer.Error()

	switch {
	case errors.Is(err, models.ErrBadRequest), errors.Is(err, models.ErrChoiceOutOfRange):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, models.ErrNoCredential),
		errors.Is(err, models.ErrSessionInvalid),
		errors.Is(err, models.ErrSessionExpired):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, models.ErrTurnInProgress),
		errors.Is(err, models.ErrNoActiveStory),
		errors.Is(err, models.ErrNothingToRetry):
		status = http.StatusConflict
		message = err.Error()
	default:
		h.logger.Error("Unhandled service error", zap.Error(err))
	}

	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
