package cachestore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type MemStore struct {
	lru *expirable.LRU[string, string]
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an in-process store holding at most capacity entries,
// each for ttl.
func NewMemStore(capacity int, ttl time.Duration) *MemStore {
	return &MemStore{
		lru: expirable.NewLRU[string, string](capacity, nil, ttl),
	}
}

func (s *MemStore) Get(ctx context.Context, name, key string) (string, error) {
	val, _ := s.lru.Get(entryKey(name, key))
	return val, nil
}

func (s *MemStore) Set(ctx context.Context, name, key, val string) error {
	s.lru.Add(entryKey(name, key), val)
	return nil
}

func (s *MemStore) Purge(ctx context.Context, name, key string) error {
	s.lru.Remove(entryKey(name, key))
	return nil
}

// Len is the number of live entries, across all names.
func (s *MemStore) Len() int {
	return s.lru.Len()
}
