package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"adventure-server/internal/models"
)

// Compile-time check to ensure redisAdventureRepository implements AdventureRepository
var _ AdventureRepository = (*redisAdventureRepository)(nil)

type redisAdventureRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisAdventureRepository creates a new Redis-backed AdventureRepository.
// Each adventure is stored as one JSON document under adventure:{playerID}.
func NewRedisAdventureRepository(client *redis.Client, logger *zap.Logger) AdventureRepository {
	return &redisAdventureRepository{
		client: client,
		logger: logger.Named("RedisAdventureRepo"),
	}
}

func adventureKey(playerID uuid.UUID) string {
	return fmt.Sprintf("adventure:%s", playerID.String())
}

func (r *redisAdventureRepository) Get(ctx context.Context, playerID uuid.UUID) (*models.Adventure, error) {
	key := adventureKey(playerID)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get adventure from redis", zap.Error(err), zap.String("key", key))
		return nil, fmt.Errorf("failed to get adventure from redis: %w", err)
	}

	var adventure models.Adventure
	if err := json.Unmarshal(data, &adventure); err != nil {
		// Corrupted state is unrecoverable for the player; surface it loudly.
		r.logger.Error("Failed to unmarshal adventure data from redis",
			zap.Error(err),
			zap.String("playerID", playerID.String()),
			zap.Int("bytes", len(data)),
		)
		return nil, fmt.Errorf("corrupted adventure data in redis for player %s: %w", playerID, err)
	}
	return &adventure, nil
}

func (r *redisAdventureRepository) Save(ctx context.Context, playerID uuid.UUID, adventure *models.Adventure) error {
	data, err := json.Marshal(adventure)
	if err != nil {
		return fmt.Errorf("failed to marshal adventure: %w", err)
	}

	key := adventureKey(playerID)
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		r.logger.Error("Failed to save adventure in redis", zap.Error(err), zap.String("playerID", playerID.String()))
		return fmt.Errorf("failed to save adventure in redis: %w", err)
	}

	r.logger.Debug("Adventure saved",
		zap.String("playerID", playerID.String()),
		zap.Int("segments", len(adventure.Segments)),
	)
	return nil
}

func (r *redisAdventureRepository) Delete(ctx context.Context, playerID uuid.UUID) error {
	key := adventureKey(playerID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to delete adventure from redis", zap.Error(err), zap.String("playerID", playerID.String()))
		return fmt.Errorf("failed to delete adventure from redis: %w", err)
	}
	return nil
}
