package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Store is a namespaced string cache. A miss is not an error: Get returns an
// empty string.
type Store interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key, val string) error
	Purge(ctx context.Context, name, key string) error
}

// DefaultKeyPrefix namespaces entries in shared (redis, memcached) stores.
const DefaultKeyPrefix = "sieve/cache/"

var ErrUndecodable = errors.New("cached value could not be decoded")

// GetJSON fetches and decodes a cached value. It returns nil and no error on a
// miss.
//
// An entry which can't be decoded (eg, written by an older version with a
// different schema) is purged, and ErrUndecodable is returned.
func GetJSON[T any](ctx context.Context, s Store, name, key string) (*T, error) {
	raw, err := s.Get(ctx, name, key)
	if err != nil || raw == "" {
		return nil, err
	}
	var val T
	if err := json.Unmarshal([]byte(raw), &val); err != nil {
		_ = s.Purge(ctx, name, key)
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrUndecodable, name, key, err)
	}
	return &val, nil
}

func SetJSON(ctx context.Context, s Store, name, key string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return s.Set(ctx, name, key, string(raw))
}

func entryKey(name, key string) string {
	return name + "/" + key
}
