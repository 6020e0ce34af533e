package preferences

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

const (
	keyPrefix     = "prefs:"
	fieldDarkMode = "darkMode"
	defaultTTL    = 90 * 24 * time.Hour
)

// RedisStore keeps preferences in the hash prefs:<console>
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, ttl: defaultTTL}
}

func (r *RedisStore) DarkMode(ctx context.Context, consoleID string) (bool, error) {
	v, err := r.client.HGet(ctx, keyPrefix+consoleID, fieldDarkMode).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read preferences of %s: %w", consoleID, err)
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", fieldDarkMode, v, err)
	}
	return enabled, nil
}

func (r *RedisStore) SetDarkMode(ctx context.Context, consoleID string, enabled bool) error {
	key := keyPrefix + consoleID
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldDarkMode, strconv.FormatBool(enabled))
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store preferences of %s: %w", consoleID, err)
	}
	return nil
}
