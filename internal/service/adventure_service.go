// Package service holds the adventure game logic: one synchronous turn at a
// time per player, story state persisted between turns.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"adventure-server/internal/ai"
	"adventure-server/internal/models"
	"adventure-server/internal/prompt"
	"adventure-server/internal/repository"
)

// AdventureService drives the game for one player at a time.
type AdventureService interface {
	// Initialize begins a story automatically when the player already has a
	// credential but no story yet; otherwise it just returns current state.
	Initialize(ctx context.Context, playerID uuid.UUID) (*models.Adventure, bool, error)
	// BeginStory starts a fresh adventure, replacing any existing story.
	BeginStory(ctx context.Context, playerID uuid.UUID) (*models.Adventure, error)
	// ChooseOption advances the story with the choice at index.
	ChooseOption(ctx context.Context, playerID uuid.UUID, index int) (*models.Adventure, error)
	// Retry replays the action whose completion call last failed.
	Retry(ctx context.Context, playerID uuid.UUID) (*models.Adventure, error)
	// GetState returns the adventure and whether a credential is stored.
	GetState(ctx context.Context, playerID uuid.UUID) (*models.Adventure, bool, error)
	SetCredential(ctx context.Context, playerID uuid.UUID, credential string) error
	// RemoveCredential deletes the credential and the story that was
	// generated with it.
	RemoveCredential(ctx context.Context, playerID uuid.UUID) error
}

type adventureService struct {
	aiClient    ai.Client
	credentials repository.CredentialRepository
	adventures  repository.AdventureRepository
	logger      *zap.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

// NewAdventureService creates the AdventureService.
func NewAdventureService(
	aiClient ai.Client,
	credentials repository.CredentialRepository,
	adventures repository.AdventureRepository,
	logger *zap.Logger,
) AdventureService {
	return &adventureService{
		aiClient:    aiClient,
		credentials: credentials,
		adventures:  adventures,
		logger:      logger.Named("AdventureService"),
		inFlight:    make(map[uuid.UUID]struct{}),
	}
}

// tryAcquire marks the player as having a turn in flight. Returns false when
// another turn is already running for the same player.
func (s *adventureService) tryAcquire(playerID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[playerID]; busy {
		return false
	}
	s.inFlight[playerID] = struct{}{}
	return true
}

func (s *adventureService) release(playerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, playerID)
}

func (s *adventureService) loadAdventure(ctx context.Context, playerID uuid.UUID) (*models.Adventure, error) {
	adventure, err := s.adventures.Get(ctx, playerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NewAdventure(), nil
		}
		return nil, err
	}
	return adventure, nil
}

func (s *adventureService) hasCredential(ctx context.Context, playerID uuid.UUID) (bool, error) {
	_, err := s.credentials.Get(ctx, playerID)
	if err != nil {
		if errors.Is(err, models.ErrNoCredential) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *adventureService) Initialize(ctx context.Context, playerID uuid.UUID) (*models.Adventure, bool, error) {
	authenticated, err := s.hasCredential(ctx, playerID)
	if err != nil {
		return nil, false, err
	}

	adventure, err := s.loadAdventure(ctx, playerID)
	if err != nil {
		return nil, false, err
	}

	// A returning player with a credential but no story gets one started for
	// them; anyone mid-story just resumes where they left off.
	if authenticated && len(adventure.Segments) == 0 && adventure.LastError == "" {
		adventure, err = s.BeginStory(ctx, playerID)
		if err != nil {
			return nil, authenticated, err
		}
	}
	return adventure, authenticated, nil
}

func (s *adventureService) BeginStory(ctx context.Context, playerID uuid.UUID) (*models.Adventure, error) {
	if !s.tryAcquire(playerID) {
		return nil, models.ErrTurnInProgress
	}
	defer s.release(playerID)

	adventure, err := s.loadAdventure(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return s.runTurn(ctx, playerID, adventure, models.PendingAction{Kind: models.ActionBegin})
}

func (s *adventureService) ChooseOption(ctx context.Context, playerID uuid.UUID, index int) (*models.Adventure, error) {
	if !s.tryAcquire(playerID) {
		return nil, models.ErrTurnInProgress
	}
	defer s.release(playerID)

	adventure, err := s.loadAdventure(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if len(adventure.Segments) == 0 || len(adventure.Choices) == 0 {
		return nil, models.ErrNoActiveStory
	}
	if index < 0 || index >= len(adventure.Choices) {
		s.logger.Warn("Choice index out of range",
			zap.String("playerID", playerID.String()),
			zap.Int("index", index),
			zap.Int("choices", len(adventure.Choices)),
		)
		return nil, models.ErrChoiceOutOfRange
	}
	return s.runTurn(ctx, playerID, adventure, models.PendingAction{Kind: models.ActionContinue, ChoiceIndex: index})
}

func (s *adventureService) Retry(ctx context.Context, playerID uuid.UUID) (*models.Adventure, error) {
	if !s.tryAcquire(playerID) {
		return nil, models.ErrTurnInProgress
	}
	defer s.release(playerID)

	adventure, err := s.loadAdventure(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if adventure.LastError == "" || adventure.LastAction == nil {
		return nil, models.ErrNothingToRetry
	}

	action := *adventure.LastAction
	if action.Kind == models.ActionContinue {
		if action.ChoiceIndex < 0 || action.ChoiceIndex >= len(adventure.Choices) {
			// Stored action no longer matches the stored choices; state was
			// tampered with or corrupted.
			return nil, models.ErrNothingToRetry
		}
	}
	return s.runTurn(ctx, playerID, adventure, action)
}

// runTurn executes one completion round-trip. A failed call never mutates the
// story: segments and choices stay as they were, only LastError and
// LastAction change so the player can retry.
func (s *adventureService) runTurn(ctx context.Context, playerID uuid.UUID, adventure *models.Adventure, action models.PendingAction) (*models.Adventure, error) {
	credential, err := s.credentials.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}

	var turnPrompt string
	if action.Kind == models.ActionBegin {
		turnPrompt = prompt.BeginStory()
	} else {
		turnPrompt = prompt.Continue(adventure.StoryTexts(), adventure.Choices[action.ChoiceIndex])
	}

	raw, usage, err := s.aiClient.Complete(ctx, credential, turnPrompt)
	if err != nil {
		return s.recordFailure(ctx, playerID, adventure, action, ai.Reason(err))
	}

	content, err := ai.ParseTurnContent(raw)
	if err != nil {
		s.logger.Warn("Completion reply did not match the turn contract",
			zap.String("playerID", playerID.String()),
			zap.Error(err),
		)
		return s.recordFailure(ctx, playerID, adventure, action, "unreadable reply from model")
	}

	segment := models.Segment{Text: content.Text, Art: content.Art}
	if action.Kind == models.ActionBegin {
		adventure.Segments = []models.Segment{segment}
	} else {
		adventure.Segments = append(adventure.Segments, segment)
	}
	adventure.Choices = content.Choices
	adventure.LastError = ""
	adventure.LastAction = nil
	adventure.UpdatedAt = time.Now().UTC()

	if err := s.adventures.Save(ctx, playerID, adventure); err != nil {
		return nil, err
	}

	s.logger.Info("Turn completed",
		zap.String("playerID", playerID.String()),
		zap.String("action", action.Kind),
		zap.Int("segments", len(adventure.Segments)),
		zap.Int("totalTokens", usage.TotalTokens),
	)
	return adventure, nil
}

// recordFailure persists the failed attempt so the player sees the error and
// can retry, and returns the adventure without a transport-level error.
func (s *adventureService) recordFailure(ctx context.Context, playerID uuid.UUID, adventure *models.Adventure, action models.PendingAction, reason string) (*models.Adventure, error) {
	adventure.LastError = fmt.Sprintf("%s: %s", failurePrefix(action.Kind), reason)
	actionCopy := action
	adventure.LastAction = &actionCopy
	adventure.UpdatedAt = time.Now().UTC()

	if err := s.adventures.Save(ctx, playerID, adventure); err != nil {
		return nil, err
	}

	s.logger.Warn("Turn failed",
		zap.String("playerID", playerID.String()),
		zap.String("action", action.Kind),
		zap.String("reason", reason),
	)
	return adventure, nil
}

func failurePrefix(actionKind string) string {
	if actionKind == models.ActionBegin {
		return "Failed to start story"
	}
	return "Failed to continue story"
}

func (s *adventureService) GetState(ctx context.Context, playerID uuid.UUID) (*models.Adventure, bool, error) {
	authenticated, err := s.hasCredential(ctx, playerID)
	if err != nil {
		return nil, false, err
	}
	adventure, err := s.loadAdventure(ctx, playerID)
	if err != nil {
		return nil, false, err
	}
	return adventure, authenticated, nil
}

func (s *adventureService) SetCredential(ctx context.Context, playerID uuid.UUID, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return models.ErrBadRequest
	}
	return s.credentials.Set(ctx, playerID, credential)
}

func (s *adventureService) RemoveCredential(ctx context.Context, playerID uuid.UUID) error {
	if err := s.credentials.Remove(ctx, playerID); err != nil {
		return err
	}
	// The story was generated with the removed credential; drop it too so a
	// new credential starts clean.
	if err := s.adventures.Delete(ctx, playerID); err != nil {
		return err
	}
	s.logger.Info("Credential and adventure removed", zap.String("playerID", playerID.String()))
	return nil
}
