package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore is an in-process LRU cache with a fixed per-entry TTL applied
// at construction time. It is internally synchronized by the underlying
// expirable.LRU, so callers may share one instance across request tasks.
type MemoryStore struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryStore builds a MemoryStore holding at most size entries, each
// expiring ttl after being set.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = 1024
	}
	return &MemoryStore{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return v, true, nil
}

// Set stores value under key. ttl is accepted for interface parity with
// other backends; MemoryStore applies the fixed TTL configured at
// construction, matching the teacher's single-mutex in-memory stores that
// configure TTL once at startup rather than per entry.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.lru.Add(key, value)
	return nil
}
