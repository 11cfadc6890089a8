// Package repository persists player credentials and adventure state.
package repository

import (
	"context"

	"github.com/google/uuid"

	"adventure-server/internal/models"
)

// CredentialRepository stores each player's completion-API credential.
// The credential never leaves the store except to authenticate the outbound
// completion call.
type CredentialRepository interface {
	// Get returns the stored credential, or models.ErrNoCredential when the
	// player has none.
	Get(ctx context.Context, playerID uuid.UUID) (string, error)
	Set(ctx context.Context, playerID uuid.UUID, credential string) error
	// Remove deletes the credential. Removing an absent credential is not an
	// error.
	Remove(ctx context.Context, playerID uuid.UUID) error
}

// AdventureRepository stores the per-player adventure state.
type AdventureRepository interface {
	// Get returns the player's adventure, or models.ErrNotFound when the
	// player has never started one.
	Get(ctx context.Context, playerID uuid.UUID) (*models.Adventure, error)
	Save(ctx context.Context, playerID uuid.UUID, adventure *models.Adventure) error
	Delete(ctx context.Context, playerID uuid.UUID) error
}
