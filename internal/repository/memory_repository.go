package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"adventure-server/internal/models"
)

var (
	_ CredentialRepository = (*memoryCredentialRepository)(nil)
	_ AdventureRepository  = (*memoryAdventureRepository)(nil)
)

type memoryCredentialRepository struct {
	mu          sync.RWMutex
	credentials map[uuid.UUID]string
}

// NewMemoryCredentialRepository creates an in-memory CredentialRepository for
// tests and single-process runs without Redis.
func NewMemoryCredentialRepository() CredentialRepository {
	return &memoryCredentialRepository{
		credentials: make(map[uuid.UUID]string),
	}
}

func (r *memoryCredentialRepository) Get(_ context.Context, playerID uuid.UUID) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	credential, ok := r.credentials[playerID]
	if !ok {
		return "", models.ErrNoCredential
	}
	return credential, nil
}

func (r *memoryCredentialRepository) Set(_ context.Context, playerID uuid.UUID, credential string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credentials[playerID] = credential
	return nil
}

func (r *memoryCredentialRepository) Remove(_ context.Context, playerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.credentials, playerID)
	return nil
}

type memoryAdventureRepository struct {
	mu         sync.RWMutex
	adventures map[uuid.UUID]*models.Adventure
}

// NewMemoryAdventureRepository creates an in-memory AdventureRepository.
func NewMemoryAdventureRepository() AdventureRepository {
	return &memoryAdventureRepository{
		adventures: make(map[uuid.UUID]*models.Adventure),
	}
}

func (r *memoryAdventureRepository) Get(_ context.Context, playerID uuid.UUID) (*models.Adventure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adventure, ok := r.adventures[playerID]
	if !ok {
		return nil, models.ErrNotFound
	}
	// Callers mutate the returned adventure before saving it back.
	clone := *adventure
	clone.Segments = append([]models.Segment(nil), adventure.Segments...)
	clone.Choices = append([]string(nil), adventure.Choices...)
	if adventure.LastAction != nil {
		action := *adventure.LastAction
		clone.LastAction = &action
	}
	return &clone, nil
}

func (r *memoryAdventureRepository) Save(_ context.Context, playerID uuid.UUID, adventure *models.Adventure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *adventure
	clone.Segments = append([]models.Segment(nil), adventure.Segments...)
	clone.Choices = append([]string(nil), adventure.Choices...)
	if adventure.LastAction != nil {
		action := *adventure.LastAction
		clone.LastAction = &action
	}
	r.adventures[playerID] = &clone
	return nil
}

func (r *memoryAdventureRepository) Delete(_ context.Context, playerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.adventures, playerID)
	return nil
}
