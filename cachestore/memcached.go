package cachestore

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// longer expirations are interpreted by memcached as a unix timestamp
const maxMemcachedExpiry = 30*24*60*60 - 60

type MemcachedStore struct {
	client *memcache.Client
	prefix string
	expiry int32
}

var _ Store = (*MemcachedStore)(nil)

// NewMemcachedStore returns a store backed by one or more memcached servers
// ("host:port"). It does not connect until first use.
func NewMemcachedStore(servers []string, prefix string, ttl time.Duration) *MemcachedStore {
	expiry := int32(maxMemcachedExpiry)
	if ttl.Seconds() < maxMemcachedExpiry {
		expiry = int32(ttl.Seconds())
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &MemcachedStore{
		client: memcache.New(servers...),
		prefix: prefix,
		expiry: expiry,
	}
}

func (s *MemcachedStore) key(name, key string) string {
	return s.prefix + entryKey(name, key)
}

func (s *MemcachedStore) Get(ctx context.Context, name, key string) (string, error) {
	item, err := s.client.Get(s.key(name, key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(item.Value), nil
}

func (s *MemcachedStore) Set(ctx context.Context, name, key, val string) error {
	return s.client.Set(&memcache.Item{
		Key:        s.key(name, key),
		Value:      []byte(val),
		Expiration: s.expiry,
	})
}

func (s *MemcachedStore) Purge(ctx context.Context, name, key string) error {
	err := s.client.Delete(s.key(name, key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}
