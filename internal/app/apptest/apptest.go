// Package apptest holds helpers shared by application service tests.
package apptest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	memclock "github.com/pixeltrip/tripboard/internal/adapters/memory/clock"
	memdocstore "github.com/pixeltrip/tripboard/internal/adapters/memory/docstore"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

// Group is the trip group used by service tests.
const Group domain.TripGroupID = "SUMMER_HOUSE"

var (
	Admin = domain.Actor{ParticipantID: "admin-mike", TripGroup: Group, Name: "Mike", Avatar: "🦊", IsAdmin: true}
	Ana   = domain.Actor{ParticipantID: "ana-1", TripGroup: Group, Name: "Ana", Avatar: "🐻"}
	Bo    = domain.Actor{ParticipantID: "bo-2", TripGroup: Group, Name: "Bo", Avatar: "🐼"}
)

// CountingStore wraps a store and counts mutating calls.
type CountingStore struct {
	docstore.Store
	mutations atomic.Int64
}

// NewStore returns a memory store wrapped in a CountingStore, with a manual clock that
// advances one second per write so creation order is deterministic.
func NewStore() (*CountingStore, *memclock.ManualClock) {
	clk := memclock.NewManualClock(time.Unix(1_700_000_000, 0).UTC())
	return &CountingStore{Store: &tickingStore{Store: memdocstore.NewStore(clk), clk: clk}}, clk
}

func (s *CountingStore) Mutations() int64 { return s.mutations.Load() }

func (s *CountingStore) Add(ctx context.Context, ref docstore.Ref, f docstore.Fields) (domain.RecordID, error) {
	s.mutations.Add(1)
	return s.Store.Add(ctx, ref, f)
}

func (s *CountingStore) Put(ctx context.Context, ref docstore.Ref, id domain.RecordID, f docstore.Fields) error {
	s.mutations.Add(1)
	return s.Store.Put(ctx, ref, id, f)
}

func (s *CountingStore) Update(ctx context.Context, ref docstore.Ref, id domain.RecordID, f docstore.Fields) error {
	s.mutations.Add(1)
	return s.Store.Update(ctx, ref, id, f)
}

func (s *CountingStore) Delete(ctx context.Context, ref docstore.Ref, id domain.RecordID) error {
	s.mutations.Add(1)
	return s.Store.Delete(ctx, ref, id)
}

type tickingStore struct {
	docstore.Store
	clk *memclock.ManualClock
}

func (s *tickingStore) Add(ctx context.Context, ref docstore.Ref, f docstore.Fields) (domain.RecordID, error) {
	s.clk.Advance(time.Second)
	return s.Store.Add(ctx, ref, f)
}

// Recorder collects snapshots delivered by a subscription.
type Recorder[T any] struct {
	mu    sync.Mutex
	snaps []T
	errs  []error
}

func (r *Recorder[T]) OnData(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, v)
}

func (r *Recorder[T]) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *Recorder[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

// Last returns the latest snapshot and whether one was delivered.
func (r *Recorder[T]) Last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if len(r.snaps) == 0 {
		return zero, false
	}
	return r.snaps[len(r.snaps)-1], true
}

func (r *Recorder[T]) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}
