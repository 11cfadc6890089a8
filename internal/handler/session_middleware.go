package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "adventure_session"
	// playerIDKey is the gin context key for the resolved player ID.
	playerIDKey = "playerID"
)

// SessionMiddleware resolves the player behind the request. A missing,
// expired or otherwise invalid cookie is not an error: the browser gets a
// brand new anonymous identity and the request proceeds.
func (h *AdventureHandler) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(SessionCookieName); err == nil {
			if playerID, verifyErr := h.sessions.Verify(token); verifyErr == nil {
				c.Set(playerIDKey, playerID)
				c.Next()
				return
			}
			// Fall through to a fresh identity. The old story is orphaned in
			// storage, which is the price of anonymous sessions.
		}

		playerID := uuid.New()
		token, err := h.sessions.Issue(playerID)
		if err != nil {
			h.logger.Error("Failed to issue session token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		h.setSessionCookie(c, token)
		c.Set(playerIDKey, playerID)
		c.Next()
	}
}

func (h *AdventureHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	// Secure is left to the proxy terminating TLS; the cookie itself is
	// HttpOnly so page scripts never see the token.
	c.SetCookie(SessionCookieName, token, int(h.sessions.TTL().Seconds()), "/", "", false, true)
}

// playerID extracts the player resolved by SessionMiddleware.
func playerID(c *gin.Context) uuid.UUID {
	value, ok := c.Get(playerIDKey)
	if !ok {
		return uuid.Nil
	}
	id, ok := value.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
