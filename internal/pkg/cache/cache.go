package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/frankariuki86-png/megapark-backend/internal/pkg/env"
)

// Configured reports whether a cache server is configured. Without one the
// rate limiter falls back to in-memory storage and health reports cache=off.
func Configured() bool {
	return env.GetEnv("CACHE_HOST", "") != ""
}

// NewClientFromEnv connects to the configured redis-compatible cache. The
// connection is verified once; a failed ping is a warning, not a fatal error,
// since the cache is advisory.
func NewClientFromEnv() *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s",
			env.GetEnv("CACHE_HOST", "localhost"),
			env.GetEnv("CACHE_PORT", "6379")),
		DB: cacheDB(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnf("[Cache] ping failed: %v", err)
	}
	return client
}

// Healthy reports whether the cache answers a ping within a short deadline.
func Healthy(ctx context.Context, client *redis.Client) bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

func cacheDB() int {
	db, err := strconv.Atoi(env.GetEnv("CACHE_DB", "0"))
	if err != nil {
		return 0
	}
	return db
}
