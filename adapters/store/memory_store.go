package store

import (
	"context"
	"sync"
	"time"

	"github.com/zapgate/zapgate/ports"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is an in-memory implementation of the Store interface with
// lazy TTL expiry. It is used in tests and single-process deployments.
type MemoryStore struct {
	data map[string]entry
	mu   sync.Mutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]entry)}
}

// Set stores a value under key with the given TTL.
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.data[key] = e
	return nil
}

// Get retrieves the value stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok || e.expired(time.Now()) {
		delete(s.data, key)
		return "", ports.ErrNotFound
	}
	return e.value, nil
}

// GetDel atomically retrieves and deletes the value stored under key. The
// mutex guarantees that concurrent callers racing on the same key see the
// value exactly once.
func (s *MemoryStore) GetDel(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok {
		return "", ports.ErrNotFound
	}
	delete(s.data, key)
	if e.expired(time.Now()) {
		return "", ports.ErrNotFound
	}
	return e.value, nil
}

// Delete removes the key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}
