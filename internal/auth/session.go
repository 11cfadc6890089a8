// Package auth issues and verifies anonymous player sessions. A session is a
// signed JWT carrying only a random player ID; there are no accounts.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"adventure-server/internal/models"
)

// Claims are the custom claims embedded in a session token.
type Claims struct {
	PlayerID string `json:"player_id"`
	jwt.RegisteredClaims
}

// SessionManager signs and verifies session tokens with a shared HMAC secret.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
}

// NewSessionManager creates a SessionManager. ttl bounds how long a browser
// can stay away before it is handed a fresh player identity.
func NewSessionManager(secret string, ttl time.Duration, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger.Named("SessionManager"),
	}
}

// TTL returns the configured session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a signed session token for playerID.
func (m *SessionManager) Issue(playerID uuid.UUID) (string, error) {
	now := time.Now()
	claims := Claims{
		PlayerID: playerID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		m.logger.Error("Failed to sign session token", zap.Error(err))
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	m.logger.Debug("Session issued", zap.String("playerID", playerID.String()))
	return signed, nil
}

// Verify parses the token and returns the player ID it carries. Expired
// tokens map to models.ErrSessionExpired, everything else wrong with the
// token maps to models.ErrSessionInvalid.
func (m *SessionManager) Verify(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			m.logger.Debug("Session token expired", zap.String("tokenSnippet", tokenSnippet(tokenString)))
			return uuid.Nil, models.ErrSessionExpired
		}
		m.logger.Warn("Session token verification failed",
			zap.Error(err),
			zap.String("tokenSnippet", tokenSnippet(tokenString)),
		)
		return uuid.Nil, models.ErrSessionInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return uuid.Nil, models.ErrSessionInvalid
	}

	playerID, err := uuid.Parse(claims.PlayerID)
	if err != nil {
		m.logger.Warn("Session token carries malformed player ID", zap.String("playerID", claims.PlayerID))
		return uuid.Nil, models.ErrSessionInvalid
	}
	return playerID, nil
}

// tokenSnippet returns a short prefix safe for logs.
func tokenSnippet(token string) string {
	const n = 10
	if len(token) <= n {
		return token
	}
	return token[:n] + "..."
}
