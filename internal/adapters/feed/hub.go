// Package feed fans change signals out to snapshot subscribers. Store adapters publish a
// collection ref after every write (or when a remote change is observed) and each
// subscriber reloads the full snapshot on its own goroutine.
package feed

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

// Loader reads the current snapshot of the subscribed collection.
type Loader func(ctx context.Context) ([]docstore.Document, error)

// Hub is safe for concurrent use.
type Hub struct {
	mu   sync.Mutex
	subs map[docstore.Ref]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[docstore.Ref]map[*subscriber]struct{})}
}

type subscriber struct {
	load    Loader
	onData  func([]docstore.Document)
	onError func(error)

	// notify holds at most one pending signal; extra signals coalesce.
	notify chan struct{}
	done   chan struct{}
	once   sync.Once

	// mu is held while a callback runs; inCallback is set under it.
	mu         sync.Mutex
	inCallback atomic.Bool
}

// deliver runs fn unless the subscription has ended.
func (s *subscriber) deliver(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	s.inCallback.Store(true)
	defer s.inCallback.Store(false)
	fn()
}

// stop ends the subscription. No callback starts after stop returns. Outside a callback,
// stop also waits for a delivery that already passed the done check. A callback that is
// already running is not waited for, so callbacks may unsubscribe themselves.
func (s *subscriber) stop(remove func()) {
	s.once.Do(func() {
		remove()
		close(s.done)
	})
	if s.inCallback.Load() {
		return
	}
	// Wait out a delivery that already passed the done check.
	s.mu.Lock()
	s.mu.Unlock()
}

// Subscribe registers a subscriber for ref and schedules the initial snapshot.
// The subscription ends when the returned func is called or ctx is done.
func (h *Hub) Subscribe(ctx context.Context, ref docstore.Ref, load Loader, onData func([]docstore.Document), onError func(error)) docstore.Unsubscribe {
	if onError == nil {
		onError = func(error) {}
	}
	s := &subscriber{
		load:    load,
		onData:  onData,
		onError: onError,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.notify <- struct{}{}

	h.mu.Lock()
	set, ok := h.subs[ref]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[ref] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		s.stop(func() { h.remove(ref, s) })
	}
	go h.run(ctx, s, unsubscribe)
	return unsubscribe
}

// Publish signals every subscriber of ref that the collection changed. It never blocks.
func (h *Hub) Publish(ref docstore.Ref) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[ref] {
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions on ref.
func (h *Hub) Subscribers(ref docstore.Ref) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[ref])
}

// Refs returns every ref with at least one live subscription.
func (h *Hub) Refs() []docstore.Ref {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]docstore.Ref, 0, len(h.subs))
	for ref := range h.subs {
		out = append(out, ref)
	}
	return out
}

func (h *Hub) remove(ref docstore.Ref, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[ref]
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, ref)
	}
}

func (h *Hub) run(ctx context.Context, s *subscriber, unsubscribe func()) {
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
		}

		docs, err := s.load(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.deliver(func() { s.onError(err) })
			continue
		}
		s.deliver(func() { s.onData(docs) })
	}
}
