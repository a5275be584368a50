// Package cache handles Redis caching operations.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feedbackhub/feedbackhub/internal/config"
	"github.com/feedbackhub/feedbackhub/internal/models"
)

// ErrCacheMiss is returned when a key is not cached.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines the interface for caching operations.
type Cache interface {
	// Get retrieves a value from the cache.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with a TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Ping checks if the cache is healthy.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}

// RedisCache implements Cache using Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client.
func NewRedisCache(ctx context.Context, cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a value from the cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get failed: %w", err)
	}
	return val, nil
}

// Set stores a value in the cache with a TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Delete removes a value from the cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// Ping checks if the cache is healthy.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the cache connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client for advanced operations.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// FeedbackCacher is the feedback-specific cache surface used by repositories.
type FeedbackCacher interface {
	Get(ctx context.Context, id string) (*models.Feedback, error)
	Set(ctx context.Context, fb *models.Feedback) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

var _ FeedbackCacher = (*FeedbackCache)(nil)

// FeedbackCache stores feedback entries, comments included, as JSON.
type FeedbackCache struct {
	cache     Cache
	keyPrefix string
	ttl       time.Duration
}

// NewFeedbackCache creates a feedback cache. Zero values select defaults.
func NewFeedbackCache(cache Cache, keyPrefix string, ttl time.Duration) *FeedbackCache {
	if keyPrefix == "" {
		keyPrefix = "feedback:"
	}
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &FeedbackCache{
		cache:     cache,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Get retrieves a feedback entry by ID.
func (c *FeedbackCache) Get(ctx context.Context, id string) (*models.Feedback, error) {
	data, err := c.cache.Get(ctx, c.key(id))
	if err != nil {
		return nil, err
	}

	var fb models.Feedback
	if err := json.Unmarshal(data, &fb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached feedback: %w", err)
	}
	return &fb, nil
}

// Set stores a feedback entry.
func (c *FeedbackCache) Set(ctx context.Context, fb *models.Feedback) error {
	data, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}
	return c.cache.Set(ctx, c.key(fb.ID), data, c.ttl)
}

// Delete removes a feedback entry.
func (c *FeedbackCache) Delete(ctx context.Context, id string) error {
	return c.cache.Delete(ctx, c.key(id))
}

// Ping checks if the cache is healthy.
func (c *FeedbackCache) Ping(ctx context.Context) error {
	return c.cache.Ping(ctx)
}

func (c *FeedbackCache) key(id string) string {
	return c.keyPrefix + id
}
