package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewRedisClient builds a Redis client for the movie-night lookup cache.
// Returns nil when no address is configured or the server is unreachable;
// callers degrade gracefully by skipping the cache.
func NewRedisClient(cfg RedisConfig, logger *logrus.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).WithField("addr", cfg.Addr).Warn("Redis unreachable, caching disabled")
		return nil
	}

	logger.WithField("addr", cfg.Addr).Info("Redis cache enabled")
	return client
}
