// File: services/session/redis.go
package session

import (
	"context"
	"encoding/json"
	"time"

	"bookflow/models"

	"github.com/go-redis/redis/v8"
)

const contextKeyPrefix = "bookflow:ctx:"

// RedisBackend keeps each session context as one JSON value with a sliding TTL.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisBackend(client *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

func (b *RedisBackend) Get(ctx context.Context, sessionID string) (*models.SessionContext, error) {
	data, err := b.client.Get(ctx, contextKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return &models.SessionContext{}, nil
	}
	if err != nil {
		return nil, err
	}
	var sc models.SessionContext
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (b *RedisBackend) Set(ctx context.Context, sessionID string, sc *models.SessionContext) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, contextKeyPrefix+sessionID, data, b.ttl).Err()
}

func (b *RedisBackend) Clear(ctx context.Context, sessionID string) error {
	return b.client.Del(ctx, contextKeyPrefix+sessionID).Err()
}
