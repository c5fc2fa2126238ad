package cachestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

const localCacheSize = 10_000

type RedisStore struct {
	cache  *cache.Cache
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to redis and checks the connection. Keys are stored as
// prefix + name + "/" + key.
func NewRedisStore(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	// local layer is kept short-lived so purges from other replicas take effect
	// quickly
	localTTL := min(ttl, time.Minute)
	return &RedisStore{
		cache: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: cache.NewTinyLFU(localCacheSize, localTTL),
		}),
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (s *RedisStore) key(name, key string) string {
	return s.prefix + entryKey(name, key)
}

func (s *RedisStore) Get(ctx context.Context, name, key string) (string, error) {
	var val string
	err := s.cache.Get(ctx, s.key(name, key), &val)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", nil
	}
	return val, err
}

func (s *RedisStore) Set(ctx context.Context, name, key, val string) error {
	return s.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   s.key(name, key),
		Value: val,
		TTL:   s.ttl,
	})
}

func (s *RedisStore) Purge(ctx context.Context, name, key string) error {
	err := s.cache.Delete(ctx, s.key(name, key))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}
