package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/archive-api/pkg/config"
)

// ErrDisabled is returned when Redis is switched off in configuration.
var ErrDisabled = errors.New("redis disabled")

// NewRedis returns a configured Redis client after a ping bounded by ctx and a 5s timeout.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return client, nil
}

// Key joins cache key segments with ':' under the archive namespace.
func Key(parts ...string) string {
	key := "archive"
	for _, part := range parts {
		key += ":" + part
	}
	return key
}
