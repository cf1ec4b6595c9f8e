package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/pixeltrip/tripboard/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use. Records older than ttl are treated as absent and
// dropped lazily on Put; a zero ttl keeps records forever.
type Store struct {
	mu  sync.RWMutex
	m   map[idempotency.Fingerprint]idempotency.Record
	ttl time.Duration
	now func() time.Time
}

func NewStore() *Store {
	return NewStoreWithTTL(0)
}

func NewStoreWithTTL(ttl time.Duration) *Store {
	return &Store{
		m:   make(map[idempotency.Fingerprint]idempotency.Record),
		ttl: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[fp]
	if !ok || s.expired(rec) {
		return idempotency.Record{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.m {
		if s.expired(v) {
			delete(s.m, k)
		}
	}
	s.m[fp] = rec
	return nil
}

func (s *Store) expired(rec idempotency.Record) bool {
	return s.ttl > 0 && s.now().Sub(rec.CreatedAt) > s.ttl
}
