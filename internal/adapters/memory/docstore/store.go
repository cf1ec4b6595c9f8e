package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pixeltrip/tripboard/internal/adapters/feed"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/clock"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

// Store is an in-memory implementation of docstore.Store.
// It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[docstore.Ref]map[domain.RecordID]docstore.Document

	clk   clock.Clock
	hub   *feed.Hub
	newID func() domain.RecordID
}

func NewStore(clk clock.Clock) *Store {
	return &Store{
		docs: make(map[docstore.Ref]map[domain.RecordID]docstore.Document),
		clk:  clk,
		hub:  feed.NewHub(),
		newID: func() domain.RecordID {
			return domain.RecordID(uuid.NewString())
		},
	}
}

// SetNewIDForTest overrides document ID generation for deterministic tests.
// It should not be used in production code.
func (s *Store) SetNewIDForTest(fn func() domain.RecordID) {
	if fn != nil {
		s.newID = fn
	}
}

func (s *Store) Subscribe(ctx context.Context, ref docstore.Ref, onData func([]docstore.Document), onError func(error)) (docstore.Unsubscribe, error) {
	load := func(ctx context.Context) ([]docstore.Document, error) {
		return s.List(ctx, ref)
	}
	return s.hub.Subscribe(ctx, ref, load, onData, onError), nil
}

// Subscribers reports the live subscriptions on ref.
func (s *Store) Subscribers(ref docstore.Ref) int {
	return s.hub.Subscribers(ref)
}

func (s *Store) List(ctx context.Context, ref docstore.Ref) ([]docstore.Document, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]docstore.Document, 0, len(s.docs[ref]))
	for _, d := range s.docs[ref] {
		out = append(out, cloneDoc(d))
	}
	docstore.SortDocuments(out)
	return out, nil
}

func (s *Store) Get(ctx context.Context, ref docstore.Ref, id domain.RecordID) (docstore.Document, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[ref][id]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return cloneDoc(d), nil
}

func (s *Store) Add(ctx context.Context, ref docstore.Ref, fields docstore.Fields) (domain.RecordID, error) {
	_ = ctx
	id := s.newID()
	now := s.now()
	stored := fields.Clone()
	if stored == nil {
		stored = docstore.Fields{}
	}

	s.mu.Lock()
	s.collection(ref)[id] = docstore.Document{
		ID:        id,
		Fields:    stored,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Unlock()

	s.hub.Publish(ref)
	return id, nil
}

func (s *Store) Put(ctx context.Context, ref docstore.Ref, id domain.RecordID, fields docstore.Fields) error {
	_ = ctx
	now := s.now()

	s.mu.Lock()
	coll := s.collection(ref)
	d, ok := coll[id]
	if !ok {
		d = docstore.Document{ID: id, Fields: docstore.Fields{}, CreatedAt: now}
	}
	for k, v := range fields.Clone() {
		d.Fields[k] = v
	}
	d.UpdatedAt = now
	coll[id] = d
	s.mu.Unlock()

	s.hub.Publish(ref)
	return nil
}

func (s *Store) Update(ctx context.Context, ref docstore.Ref, id domain.RecordID, patch docstore.Fields) error {
	_ = ctx
	now := s.now()

	s.mu.Lock()
	d, ok := s.docs[ref][id]
	if !ok {
		s.mu.Unlock()
		return docstore.ErrNotFound
	}
	for k, v := range patch.Clone() {
		d.Fields[k] = v
	}
	d.UpdatedAt = now
	s.docs[ref][id] = d
	s.mu.Unlock()

	s.hub.Publish(ref)
	return nil
}

func (s *Store) Delete(ctx context.Context, ref docstore.Ref, id domain.RecordID) error {
	_ = ctx
	s.mu.Lock()
	_, ok := s.docs[ref][id]
	if ok {
		delete(s.docs[ref], id)
	}
	s.mu.Unlock()

	if ok {
		s.hub.Publish(ref)
	}
	return nil
}

func (s *Store) collection(ref docstore.Ref) map[domain.RecordID]docstore.Document {
	coll, ok := s.docs[ref]
	if !ok {
		coll = make(map[domain.RecordID]docstore.Document)
		s.docs[ref] = coll
	}
	return coll
}

func (s *Store) now() time.Time {
	if s.clk == nil {
		return time.Now().UTC()
	}
	return s.clk.Now().UTC()
}

func cloneDoc(d docstore.Document) docstore.Document {
	d.Fields = d.Fields.Clone()
	return d
}
