package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adventure-server/internal/ai"
	"adventure-server/internal/mocks"
	"adventure-server/internal/models"
	"adventure-server/internal/repository"
	"adventure-server/internal/service"
)

const testCredential = "sk-test-credential"

type fixture struct {
	svc      service.AdventureService
	aiClient *mocks.MockAIClient
	playerID uuid.UUID
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	aiClient := mocks.NewMockAIClient(t)
	svc := service.NewAdventureService(
		aiClient,
		repository.NewMemoryCredentialRepository(),
		repository.NewMemoryAdventureRepository(),
		zap.NewNop(),
	)
	return &fixture{
		svc:      svc,
		aiClient: aiClient,
		playerID: uuid.New(),
		ctx:      context.Background(),
	}
}

func (f *fixture) withCredential(t *testing.T) *fixture {
	t.Helper()
	require.NoError(t, f.svc.SetCredential(f.ctx, f.playerID, testCredential))
	return f
}

func turnJSON(text string, choiceA, choiceB string) string {
	return `{"text":"` + text + `","art":"::art::","choices":["` + choiceA + `","` + choiceB + `"]}`
}

func (f *fixture) expectCompletion(reply string) *mock.Call {
	return f.aiClient.On("Complete", mock.Anything, testCredential, mock.AnythingOfType("string")).
		Return(reply, ai.UsageInfo{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}, nil).Once()
}

func (f *fixture) expectCompletionError(err error) *mock.Call {
	return f.aiClient.On("Complete", mock.Anything, testCredential, mock.AnythingOfType("string")).
		Return("", ai.UsageInfo{}, err).Once()
}

func TestBeginStory_Success(t *testing.T) {
	f := newFixture(t).withCredential(t)
	f.expectCompletion(turnJSON("You wake up in a cave.", "Go left", "Go right"))

	adv, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err)
	require.Len(t, adv.Segments, 1)
	assert.Equal(t, "You wake up in a cave.", adv.Segments[0].Text)
	assert.Equal(t, "::art::", adv.Segments[0].Art)
	assert.Equal(t, []string{"Go left", "Go right"}, adv.Choices)
	assert.Empty(t, adv.LastError)
	assert.Nil(t, adv.LastAction)
}

func TestBeginStory_NoCredential(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNoCredential)
}

func TestBeginStory_ReplacesExistingStory(t *testing.T) {
	f := newFixture(t).withCredential(t)
	f.expectCompletion(turnJSON("First story.", "A", "B"))
	f.expectCompletion(turnJSON("Second story.", "C", "D"))

	_, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err)

	adv, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err)
	require.Len(t, adv.Segments, 1, "A new story replaces the old one")
	assert.Equal(t, "Second story.", adv.Segments[0].Text)
	assert.Equal(t, []string{"C", "D"}, adv.Choices)
}

func TestBeginStory_CompletionFailure(t *testing.T) {
	f := newFixture(t).withCredential(t)
	f.expectCompletionError(&ai.CompletionError{Reason: "rate limited"})

	adv, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err, "A failed turn is reported in the adventure, not as an error")
	assert.Equal(t, "Failed to start story: rate limited", adv.LastError)
	require.NotNil(t, adv.LastAction)
	assert.Equal(t, models.ActionBegin, adv.LastAction.Kind)
	assert.Empty(t, adv.Segments, "No partial story state on failure")
}

func TestChooseOption_Success(t *testing.T) {
	f := newFixture(t).withCredential(t)
	f.expectCompletion(turnJSON("You wake up.", "Go left", "Go right"))
	_, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err)

	// The continuation prompt must carry the selected choice text.
	f.aiClient.On("Complete", mock.Anything, testCredential, mock.MatchedBy(func(p string) bool {
		return containsAll(p, "You wake up.", "The player chose: Go right")
	})).Return(turnJSON("You head right.", "Run", "Hide"), ai.UsageInfo{}, nil).Once()

	adv, err := f.svc.ChooseOption(f.ctx, f.playerID, 1)
	require.NoError(t, err)
	require.Len(t, adv.Segments, 2)
	assert.Equal(t, "You head right.", adv.Segments[1].Text)
	assert.Equal(t, []string{"Run", "Hide"}, adv.Choices)
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

func TestChooseOption_NoActiveStory(t *testing.T) {
	f := newFixture(t).withCredential(t)

	_, err := f.svc.ChooseOption(f.ctx, f.playerID, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNoActiveStory)
}

func TestChooseOption_IndexOutOfRange(t *testing.T) {
	f := newFixture(t).withCredential(t)
	f.expectCompletion(turnJSON("Start.", "A", "B"))
	_, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err)

	for _, index := range []int{-1, 2, 99} {
		_, err := f.svc.ChooseOption(f.ctx, f.playerID, index)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrChoiceOutOfRange)
	}
}

func TestChooseOption_FailureKeepsStory(t *testing.T) {
	f := newFixture(t).withCredential(t)
	f.expectCompletion(turnJSON("Start.", "A", "B"))
	_, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err)

	f.expectCompletionError(&ai.CompletionError{Reason: "rate limited"})
	adv, err := f.svc.ChooseOption(f.ctx, f.playerID, 0)
	require.NoError(t, err)
	assert.Equal(t, "Failed to continue story: rate limited", adv.LastError)
	require.Len(t, adv.Segments, 1, "The story must survive a failed turn")
	assert.Equal(t, []string{"A", "B"}, adv.Choices, "The choices must survive a failed turn")
	require.NotNil(t, adv.LastAction)
	assert.Equal(t, models.ActionContinue, adv.LastAction.Kind)
	assert.Equal(t, 0, adv.LastAction.ChoiceIndex)
}

func TestChooseOption_MalformedReply(t *testing.T) {
	f := newFixture(t).withCredential(t)
	f.expectCompletion(turnJSON("Start.", "A", "B"))
	_, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err)

	f.expectCompletion("I am sorry, I cannot produce JSON today.")
	adv, err := f.svc.ChooseOption(f.ctx, f.playerID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Failed to continue story: unreadable reply from model", adv.LastError)
	require.Len(t, adv.Segments, 1)
}

func TestRetry_ReplaysFailedChoice(t *testing.T) {
	f := newFixture(t).withCredential(t)
	f.expectCompletion(turnJSON("Start.", "A", "B"))
	_, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err)

	f.expectCompletionError(&ai.CompletionError{Reason: "rate limited"})
	_, err = f.svc.ChooseOption(f.ctx, f.playerID, 1)
	require.NoError(t, err)

	// Retry must replay choice 1, carrying its text in the prompt.
	f.aiClient.On("Complete", mock.Anything, testCredential, mock.MatchedBy(func(p string) bool {
		return containsAll(p, "The player chose: B")
	})).Return(turnJSON("It worked this time.", "C", "D"), ai.UsageInfo{}, nil).Once()

	adv, err := f.svc.Retry(f.ctx, f.playerID)
	require.NoError(t, err)
	assert.Empty(t, adv.LastError)
	assert.Nil(t, adv.LastAction)
	require.Len(t, adv.Segments, 2)
	assert.Equal(t, "It worked this time.", adv.Segments[1].Text)
}

func TestRetry_ReplaysFailedBegin(t *testing.T) {
	f := newFixture(t).withCredential(t)
	f.expectCompletionError(&ai.CompletionError{Reason: "invalid api key"})

	adv, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err)
	assert.Equal(t, "Failed to start story: invalid api key", adv.LastError)

	f.expectCompletion(turnJSON("Fresh start.", "A", "B"))
	adv, err = f.svc.Retry(f.ctx, f.playerID)
	require.NoError(t, err)
	assert.Empty(t, adv.LastError)
	require.Len(t, adv.Segments, 1)
	assert.Equal(t, "Fresh start.", adv.Segments[0].Text)
}

func TestRetry_NothingToRetry(t *testing.T) {
	f := newFixture(t).withCredential(t)

	_, err := f.svc.Retry(f.ctx, f.playerID)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNothingToRetry)

	// A successful turn also leaves nothing to retry.
	f.expectCompletion(turnJSON("Start.", "A", "B"))
	_, err = f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err)

	_, err = f.svc.Retry(f.ctx, f.playerID)
	assert.ErrorIs(t, err, models.ErrNothingToRetry)
}

func TestInitialize_AutoBeginsWithCredential(t *testing.T) {
	f := newFixture(t).withCredential(t)
	f.expectCompletion(turnJSON("An automatic opening.", "A", "B"))

	adv, authenticated, err := f.svc.Initialize(f.ctx, f.playerID)
	require.NoError(t, err)
	assert.True(t, authenticated)
	require.Len(t, adv.Segments, 1)
	assert.Equal(t, "An automatic opening.", adv.Segments[0].Text)
}

func TestInitialize_NoCredential(t *testing.T) {
	f := newFixture(t)

	adv, authenticated, err := f.svc.Initialize(f.ctx, f.playerID)
	require.NoError(t, err)
	assert.False(t, authenticated)
	assert.Empty(t, adv.Segments)
}

func TestInitialize_DoesNotRestartExistingStory(t *testing.T) {
	f := newFixture(t).withCredential(t)
	f.expectCompletion(turnJSON("Opening.", "A", "B"))
	_, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err)

	// No further Complete expectation: Initialize must not call the model.
	adv, authenticated, err := f.svc.Initialize(f.ctx, f.playerID)
	require.NoError(t, err)
	assert.True(t, authenticated)
	require.Len(t, adv.Segments, 1)
	assert.Equal(t, "Opening.", adv.Segments[0].Text)
}

func TestInitialize_DoesNotAutoRetryFailedBegin(t *testing.T) {
	f := newFixture(t).withCredential(t)
	f.expectCompletionError(&ai.CompletionError{Reason: "rate limited"})
	_, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err)

	// Reloading the page must not burn another completion call; the player
	// decides when to retry.
	adv, _, err := f.svc.Initialize(f.ctx, f.playerID)
	require.NoError(t, err)
	assert.Equal(t, "Failed to start story: rate limited", adv.LastError)
}

func TestSetCredential_Validation(t *testing.T) {
	f := newFixture(t)

	err := f.svc.SetCredential(f.ctx, f.playerID, "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrBadRequest)

	require.NoError(t, f.svc.SetCredential(f.ctx, f.playerID, "  sk-padded  "))
	_, authenticated, err := f.svc.GetState(f.ctx, f.playerID)
	require.NoError(t, err)
	assert.True(t, authenticated)
}

func TestRemoveCredential_ClearsStory(t *testing.T) {
	f := newFixture(t).withCredential(t)
	f.expectCompletion(turnJSON("Opening.", "A", "B"))
	_, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveCredential(f.ctx, f.playerID))

	adv, authenticated, err := f.svc.GetState(f.ctx, f.playerID)
	require.NoError(t, err)
	assert.False(t, authenticated)
	assert.Empty(t, adv.Segments, "Removing the credential clears the story")

	// Starting over without a credential fails.
	_, err = f.svc.BeginStory(f.ctx, f.playerID)
	assert.ErrorIs(t, err, models.ErrNoCredential)
}

func TestGetState_EmptyForNewPlayer(t *testing.T) {
	f := newFixture(t)

	adv, authenticated, err := f.svc.GetState(f.ctx, f.playerID)
	require.NoError(t, err)
	assert.False(t, authenticated)
	assert.Empty(t, adv.Segments)
	assert.Empty(t, adv.Choices)
	assert.Empty(t, adv.LastError)
}

func TestChooseOption_CredentialRemovedMidStory(t *testing.T) {
	f := newFixture(t).withCredential(t)
	f.expectCompletion(turnJSON("Opening.", "A", "B"))
	_, err := f.svc.BeginStory(f.ctx, f.playerID)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveCredential(f.ctx, f.playerID))

	_, err = f.svc.ChooseOption(f.ctx, f.playerID, 0)
	require.Error(t, err)
	// The story went with the credential, so there is nothing to continue.
	assert.True(t, errors.Is(err, models.ErrNoActiveStory) || errors.Is(err, models.ErrNoCredential))
}
