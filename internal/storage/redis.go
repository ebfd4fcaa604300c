package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"market-scanner/internal/dedup"
)

const cooldownKeyPrefix = "scanner:cooldown:%s"

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// RedisCooldownStore keeps cooldown timestamps in Redis with a TTL
// matching the cooldown window, so stale records expire on their own.
type RedisCooldownStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCooldownStore connects to Redis and verifies connectivity
func NewRedisCooldownStore(cfg RedisConfig, ttl time.Duration) (*RedisCooldownStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisCooldownStore{client: client, ttl: ttl}, nil
}

func (s *RedisCooldownStore) GetLastEmitted(ctx context.Context, id dedup.Identity) (time.Time, bool, error) {
	key := fmt.Sprintf(cooldownKeyPrefix, id.Key())
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("cooldown lookup: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt cooldown record %q: %w", key, err)
	}
	return t, true, nil
}

func (s *RedisCooldownStore) SetLastEmitted(ctx context.Context, id dedup.Identity, t time.Time) error {
	key := fmt.Sprintf(cooldownKeyPrefix, id.Key())
	if err := s.client.Set(ctx, key, t.Format(time.RFC3339Nano), s.ttl).Err(); err != nil {
		return fmt.Errorf("cooldown write: %w", err)
	}
	return nil
}

// Close releases the Redis connection
func (s *RedisCooldownStore) Close() error {
	return s.client.Close()
}
