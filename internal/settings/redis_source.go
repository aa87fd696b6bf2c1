package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKey = "settings:v1"

// RedisSource keeps settings in Redis so all instances observe
// administrative updates immediately.
type RedisSource struct {
	cache *redis.Client
}

// NewRedisSource builds a Redis-backed settings source.
func NewRedisSource(cache *redis.Client) *RedisSource {
	return &RedisSource{cache: cache}
}

// Load fetches the stored settings, falling back to defaults when none
// have been saved yet.
func (r *RedisSource) Load(ctx context.Context) (Settings, error) {
	raw, err := r.cache.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}

	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// Save validates and persists the settings.
func (r *RedisSource) Save(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := r.cache.Set(ctx, redisKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
