// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"bookflow/config"

	"github.com/go-redis/redis/v8"
)

// ContextClient holds per-session conversation context.
var ContextClient *redis.Client

// InitContextCache initializes the Redis client for session context (REDIS_CONTEXT_DB).
func InitContextCache() {
	ContextClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisContextDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := ContextClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Context): %v", err)
	}
}

// GetContextClient returns the session context client.
func GetContextClient() *redis.Client {
	if ContextClient == nil {
		InitContextCache()
	}
	return ContextClient
}
