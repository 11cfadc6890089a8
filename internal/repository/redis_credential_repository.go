package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"adventure-server/internal/models"
)

// Compile-time check to ensure redisCredentialRepository implements CredentialRepository
var _ CredentialRepository = (*redisCredentialRepository)(nil)

type redisCredentialRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCredentialRepository creates a new Redis-backed CredentialRepository.
// Credentials are stored without TTL: they stay until the player removes them.
func NewRedisCredentialRepository(client *redis.Client, logger *zap.Logger) CredentialRepository {
	return &redisCredentialRepository{
		client: client,
		logger: logger.Named("RedisCredentialRepo"),
	}
}

func credentialKey(playerID uuid.UUID) string {
	return fmt.Sprintf("credential:%s", playerID.String())
}

func (r *redisCredentialRepository) Get(ctx context.Context, playerID uuid.UUID) (string, error) {
	key := credentialKey(playerID)
	credential, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("No credential stored for player", zap.String("playerID", playerID.String()))
			return "", models.ErrNoCredential
		}
		r.logger.Error("Failed to get credential from redis", zap.Error(err), zap.String("key", key))
		return "", fmt.Errorf("failed to get credential from redis: %w", err)
	}
	return credential, nil
}

func (r *redisCredentialRepository) Set(ctx context.Context, playerID uuid.UUID, credential string) error {
	key := credentialKey(playerID)
	if err := r.client.Set(ctx, key, credential, 0).Err(); err != nil {
		r.logger.Error("Failed to set credential in redis", zap.Error(err), zap.String("playerID", playerID.String()))
		return fmt.Errorf("failed to set credential in redis: %w", err)
	}
	// The credential value itself is never logged.
	r.logger.Info("Credential stored", zap.String("playerID", playerID.String()))
	return nil
}

func (r *redisCredentialRepository) Remove(ctx context.Context, playerID uuid.UUID) error {
	key := credentialKey(playerID)
	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		r.logger.Error("Failed to delete credential from redis", zap.Error(err), zap.String("playerID", playerID.String()))
		return fmt.Errorf("failed to delete credential from redis: %w", err)
	}
	if deleted == 0 {
		r.logger.Debug("Remove called but no credential was stored", zap.String("playerID", playerID.String()))
	} else {
		r.logger.Info("Credential removed", zap.String("playerID", playerID.String()))
	}
	return nil
}
