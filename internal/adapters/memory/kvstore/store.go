package kvstore

import (
	"bytes"
	"context"
	"sync"

	"github.com/pixeltrip/tripboard/internal/ports/out/kvstore"
)

// Store is an in-memory implementation of kvstore.Store.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewStore() *Store {
	return &Store{m: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, kvstore.ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = bytes.Clone(value)
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
