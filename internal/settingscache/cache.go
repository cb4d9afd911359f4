// Package settingscache provides Redis-backed caching for user notification
// preferences, which are read on every reminder and digest delivery.
package settingscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/horarios-app/horarios-bot/internal/domain"
)

// DefaultTTL bounds staleness after an out-of-band preference change.
const DefaultTTL = 5 * time.Minute

// Cache stores user settings in Redis keyed by user id.
type Cache struct {
	client *redis.Client
}

// NewCache constructs a settings cache backed by the provided Redis client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get fetches cached settings if they exist. A nil result with nil error
// means a cache miss.
func (c *Cache) Get(ctx context.Context, userID int64) (*domain.UserSettings, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached settings: %w", err)
	}

	var settings domain.UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("decode cached settings: %w", err)
	}

	return &settings, nil
}

// Set stores the settings in cache for the provided TTL.
func (c *Cache) Set(ctx context.Context, userID int64, settings *domain.UserSettings, ttl time.Duration) error {
	if c == nil || c.client == nil || settings == nil {
		return nil
	}

	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings for cache: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(userID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set cached settings: %w", err)
	}

	return nil
}

// Invalidate removes the cached entry if it exists.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete cached settings: %w", err)
	}

	return nil
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("settings:%d", userID)
}
