package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

// RedisStore is a Redis-backed Store. Values are JSON, expiry is
// delegated to Redis. Backend errors are logged and degrade to misses.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(addr, password string, db int, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{
		client: client,
		prefix: "ioc:",
		logger: logger,
	}, nil
}

func (s *RedisStore) key(provider, canonical string) string {
	return s.prefix + provider + ":" + canonical
}

// Get fetches and decodes a cached result along with its remaining TTL
func (s *RedisStore) Get(ctx context.Context, provider, canonical string) (*entity.ProviderResult, time.Duration, bool) {
	key := s.key(provider, canonical)

	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		if err != redis.Nil {
			s.logger.Warn("redis cache get failed", "key", key, "error", err)
		}
		return nil, 0, false
	}

	var result entity.ProviderResult
	if err := json.Unmarshal([]byte(getCmd.Val()), &result); err != nil {
		s.logger.Warn("redis cache entry corrupt, dropping", "key", key, "error", err)
		s.client.Del(ctx, key)
		return nil, 0, false
	}

	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = 0
	}
	return &result, ttl, true
}

// Put encodes and stores a result with expiry
func (s *RedisStore) Put(ctx context.Context, provider, canonical string, res *entity.ProviderResult, ttl time.Duration) {
	if res == nil || ttl <= 0 {
		return
	}

	data, err := json.Marshal(res)
	if err != nil {
		s.logger.Warn("redis cache marshal failed", "error", err)
		return
	}

	key := s.key(provider, canonical)
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		s.logger.Warn("redis cache set failed", "key", key, "error", err)
	}
}

// Close releases the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
