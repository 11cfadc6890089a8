package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adventure-server/internal/models"
)

func newTestManager(t *testing.T, ttl time.Duration) *SessionManager {
	t.Helper()
	return NewSessionManager("test-session-secret", ttl, zap.NewNop())
}

func TestSessionManager_IssueAndVerify(t *testing.T) {
	m := newTestManager(t, time.Hour)
	playerID := uuid.New()

	token, err := m.Issue(playerID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsedID, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, playerID, parsedID)
}

func TestSessionManager_Expired(t *testing.T) {
	m := newTestManager(t, -time.Minute)
	token, err := m.Issue(uuid.New())
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSessionExpired)
}

func TestSessionManager_Malformed(t *testing.T) {
	m := newTestManager(t, time.Hour)

	_, err := m.Verify("this.is.not.a.valid.jwt")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSessionInvalid)
}

func TestSessionManager_WrongSecret(t *testing.T) {
	issuer := NewSessionManager("secret-one", time.Hour, zap.NewNop())
	verifier := NewSessionManager("secret-two", time.Hour, zap.NewNop())

	token, err := issuer.Issue(uuid.New())
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSessionInvalid)
}
