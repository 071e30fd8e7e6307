package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jleechanorg/claude-commands-sub003/pkg/state"
)

// stateTTL bounds how long an idle campaign survives in Redis.
const stateTTL = 24 * time.Hour

// RedisStorage implements the Storage interface using Redis
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	return &RedisStorage{
		client: rdb,
		logger: logger,
	}
}

func stateKey(id uuid.UUID) string {
	return "campaign:" + id.String() + ":state"
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	cmd := r.client.Ping(ctx)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

func (r *RedisStorage) SaveState(ctx context.Context, id uuid.UUID, gs *state.CanonicalState) error {
	gs.UpdatedAt = time.Now()

	data, err := json.Marshal(gs)
	if err != nil {
		r.logger.Error("Failed to marshal campaign state", "campaign_id", id, "error", err)
		return fmt.Errorf("failed to marshal campaign state: %w", err)
	}

	cmd := r.client.Set(ctx, stateKey(id), string(data), stateTTL)
	if err := cmd.Err(); err != nil {
		r.logger.Error("Failed to save campaign state", "campaign_id", id, "error", err)
		return fmt.Errorf("failed to save campaign state: %w", err)
	}

	return nil
}

func (r *RedisStorage) LoadState(ctx context.Context, id uuid.UUID) (*state.CanonicalState, error) {
	cmd := r.client.Get(ctx, stateKey(id))
	if err := cmd.Err(); err != nil {
		if err == redis.Nil {
			r.logger.Warn("Campaign state not found", "campaign_id", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load campaign state", "campaign_id", id, "error", err)
		return nil, fmt.Errorf("failed to load campaign state: %w", err)
	}

	data := cmd.Val()
	if data == "" {
		r.logger.Warn("Campaign state not found", "campaign_id", id)
		return nil, nil
	}

	var gs state.CanonicalState
	if err := json.Unmarshal([]byte(data), &gs); err != nil {
		r.logger.Error("Failed to unmarshal campaign state", "campaign_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal campaign state: %w", err)
	}
	gs.Normalize()

	return &gs, nil
}

func (r *RedisStorage) DeleteState(ctx context.Context, id uuid.UUID) error {
	cmd := r.client.Del(ctx, stateKey(id))
	if err := cmd.Err(); err != nil {
		r.logger.Error("Failed to delete campaign state", "campaign_id", id, "error", err)
		return fmt.Errorf("failed to delete campaign state: %w", err)
	}
	return nil
}
