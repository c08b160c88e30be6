// Package cache provides the response cache store. Redis is used when
// cache.redis_addr is set, otherwise entries live in process memory
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const opTimeout = 2 * time.Second

// RedisStore implements persist.CacheStore on top of go-redis. Values are
// stored JSON encoded
type RedisStore struct {
	C *redis.Client
}

func NewRedisStore(c *redis.Client) *RedisStore {
	return &RedisStore{C: c}
}

func (s *RedisStore) Get(key string, value any) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	b, err := s.C.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return persist.ErrCacheMiss
		}

		return err
	}

	return json.Unmarshal(b, value)
}

func (s *RedisStore) Set(key string, value any, expire time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return s.C.Set(ctx, key, b, expire).Err()
}

func (s *RedisStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return s.C.Del(ctx, key).Err()
}

// New returns the store configured by cache.redis_addr, cache.redis_password
// and cache.redis_db
func New(ctx context.Context) (persist.CacheStore, error) {
	addr := viper.GetString("cache.redis_addr")
	if addr == "" {
		zap.L().Debug("No redis address configured, using in-memory cache")
		return persist.NewMemoryStore(time.Minute), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("cache.redis_password"),
		DB:       viper.GetInt("cache.redis_db"),
	})

	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s, %w", addr, err)
	}

	return NewRedisStore(client), nil
}
