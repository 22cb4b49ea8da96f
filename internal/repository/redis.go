package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"padelbot/internal/config"
	"padelbot/internal/models"

	"github.com/redis/go-redis/v9"
)

// Blacklist entries outlive the action-state TTL but not the proposal
// horizon; a date in the past is never proposed again anyway.
const blacklistTTL = 30 * 24 * time.Hour

var errNoClient = errors.New("redis client is nil")

// RedisStateRepository is the durable store: pending action inputs survive a
// bot restart, blacklisted dates survive until their TTL runs out.
type RedisStateRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisStateRepository(client *redis.Client, ttl time.Duration) *RedisStateRepository {
	return &RedisStateRepository{
		client: client,
		ttl:    ttl,
	}
}

func stateKey(userID int64) string {
	return fmt.Sprintf("action_state:%d", userID)
}

func rateKey(userID int64) string {
	return fmt.Sprintf("rate_limit:%d", userID)
}

func dateKey(club, date string) string {
	return fmt.Sprintf("blacklist:%s:%s", club, date)
}

func (r *RedisStateRepository) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	if r.client == nil {
		return nil, errNoClient
	}
	val, err := r.client.Get(ctx, stateKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get action state: %w", err)
	}

	var state models.UserState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("unmarshal action state: %w", err)
	}
	return &state, nil
}

func (r *RedisStateRepository) SetState(ctx context.Context, state *models.UserState) error {
	if r.client == nil {
		return errNoClient
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal action state: %w", err)
	}
	if err := r.client.Set(ctx, stateKey(state.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set action state: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) ClearState(ctx context.Context, userID int64) error {
	if r.client == nil {
		return errNoClient
	}
	if err := r.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear action state: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, errNoClient
	}
	count, err := r.client.Incr(ctx, rateKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("increment rate limit: %w", err)
	}
	if count == 1 {
		r.client.Expire(ctx, rateKey(userID), window)
	}
	return count <= int64(limit), nil
}

func (r *RedisStateRepository) BlacklistDate(ctx context.Context, club, date string) error {
	if r.client == nil {
		return errNoClient
	}
	if err := r.client.Set(ctx, dateKey(club, date), "1", blacklistTTL).Err(); err != nil {
		return fmt.Errorf("blacklist date: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) IsDateBlacklisted(ctx context.Context, club, date string) (bool, error) {
	if r.client == nil {
		return false, errNoClient
	}
	_, err := r.client.Get(ctx, dateKey(club, date)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return true, nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
