package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss signals that the requested key is absent from the cache.
var ErrCacheMiss = redis.Nil

// CacheRepository wraps Redis for caching attendance read paths. All methods
// degrade to no-ops (or misses) when no client is configured, so callers can
// run without Redis in development and tests.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// TodayKey builds the cache key for a class's current-day attendance list.
func TodayKey(classCode string) string {
	return fmt.Sprintf("attendance:today:%s", strings.ToUpper(classCode))
}

// Get retrieves and unmarshals the cached value into dest.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set marshals the value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// GetToday retrieves the cached current-day attendance list for a class.
func (r *CacheRepository) GetToday(ctx context.Context, classCode string, dest interface{}) error {
	return r.Get(ctx, TodayKey(classCode), dest)
}

// SetToday caches the current-day attendance list for a class.
func (r *CacheRepository) SetToday(ctx context.Context, classCode string, value interface{}, ttl time.Duration) error {
	return r.Set(ctx, TodayKey(classCode), value, ttl)
}

// InvalidateClass drops cached attendance reads for the class code.
func (r *CacheRepository) InvalidateClass(ctx context.Context, classCode string) {
	if r.client == nil {
		return
	}
	if err := r.client.Del(ctx, TodayKey(classCode)).Err(); err != nil {
		r.logger.Warn("failed to invalidate attendance cache",
			zap.String("class_code", classCode), zap.Error(err))
	}
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
