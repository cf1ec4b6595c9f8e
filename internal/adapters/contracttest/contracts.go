package contracttest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pixeltrip/tripboard/internal/domain"
	docstoreport "github.com/pixeltrip/tripboard/internal/ports/out/docstore"
	idempotencyport "github.com/pixeltrip/tripboard/internal/ports/out/idempotency"
	kvstoreport "github.com/pixeltrip/tripboard/internal/ports/out/kvstore"
)

type CleanupFunc = func()

type DocStoreFactory func(t *testing.T) (docstoreport.Store, CleanupFunc)
type KVStoreFactory func(t *testing.T) (kvstoreport.Store, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

const eventually = 5 * time.Second

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:         idempotencyport.Key("k-" + uuid.NewString()),
		TripGroup:   domain.TripGroupID("group-1"),
		Participant: domain.ParticipantID("ana-1"),
		Method:      "POST",
		Route:       "/v1/lodging",
		BodyHash:    "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Scoped by trip group.
	other := fp
	other.TripGroup = "group-2"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("expected miss for other group, got ok=%v err=%v", ok, err)
	}
}

func RunKVStore(t *testing.T, newStore KVStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, kvstoreport.ErrNotFound) {
		t.Fatalf("Get missing err=%v, want ErrNotFound", err)
	}
	if err := store.Put(ctx, "session", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "session", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err := store.Get(ctx, "session")
	if err != nil || string(got) != `{"v":2}` {
		t.Fatalf("Get=%q err=%v", got, err)
	}
	if err := store.Delete(ctx, "session"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "session"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
	if _, err := store.Get(ctx, "session"); !errors.Is(err, kvstoreport.ErrNotFound) {
		t.Fatalf("Get after delete err=%v", err)
	}
}

// snapshotRecorder collects snapshots delivered to a subscription.
type snapshotRecorder struct {
	mu    sync.Mutex
	snaps [][]docstoreport.Document
	errs  []error
}

func (r *snapshotRecorder) onData(docs []docstoreport.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, docs)
}

func (r *snapshotRecorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *snapshotRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *snapshotRecorder) last() []docstoreport.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return nil
	}
	return r.snaps[len(r.snaps)-1]
}

func countID(docs []docstoreport.Document, id domain.RecordID) int {
	n := 0
	for _, d := range docs {
		if d.ID == id {
			n++
		}
	}
	return n
}

func RunDocStore(t *testing.T, newStore DocStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	// Unique groups keep suites independent when they share a database.
	group := domain.TripGroupID("contract-" + uuid.NewString())
	ref := docstoreport.Ref{Group: group, Collection: domain.CollectionLodging}
	otherGroup := docstoreport.Ref{Group: group + "-other", Collection: domain.CollectionLodging}
	otherColl := docstoreport.Ref{Group: group, Collection: domain.CollectionFood}

	rec := &snapshotRecorder{}
	unsub, err := store.Subscribe(ctx, ref, rec.onData, rec.onError)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub()

	require.Eventually(t, func() bool { return rec.count() >= 1 }, eventually, 10*time.Millisecond, "initial snapshot")
	if n := len(rec.last()); n != 0 {
		t.Fatalf("initial snapshot len=%d, want 0", n)
	}

	// Add: server id + timestamps, visible through the next snapshot exactly once.
	id, err := store.Add(ctx, ref, docstoreport.Fields{
		"title": "Cabin",
		"votes": map[string]any{"like": []any{"Ana"}, "dislike": []any{}},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id == "" {
		t.Fatalf("Add returned empty id")
	}
	require.Eventually(t, func() bool { return countID(rec.last(), id) == 1 }, eventually, 10*time.Millisecond, "added record in snapshot")

	d, err := store.Get(ctx, ref, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.CreatedAt.IsZero() || d.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps, got %+v", d)
	}
	if d.Fields["title"] != "Cabin" {
		t.Fatalf("title=%v", d.Fields["title"])
	}
	votes, ok := d.Fields["votes"].(map[string]any)
	if !ok {
		t.Fatalf("votes type=%T", d.Fields["votes"])
	}
	if like, ok := votes["like"].([]any); !ok || len(like) != 1 || like[0] != "Ana" {
		t.Fatalf("votes.like=%#v", votes["like"])
	}

	// Update: top-level merge keeps untouched fields.
	if err := store.Update(ctx, ref, id, docstoreport.Fields{"price": "$120", "rating": 4.5}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	d, err = store.Get(ctx, ref, id)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if d.Fields["title"] != "Cabin" || d.Fields["price"] != "$120" || d.Fields["rating"] != 4.5 {
		t.Fatalf("merged fields=%v", d.Fields)
	}
	require.Eventually(t, func() bool {
		for _, doc := range rec.last() {
			if doc.ID == id && doc.Fields["price"] == "$120" {
				return true
			}
		}
		return false
	}, eventually, 10*time.Millisecond, "updated record in snapshot")

	if err := store.Update(ctx, ref, "does-not-exist", docstoreport.Fields{"x": true}); !errors.Is(err, docstoreport.ErrNotFound) {
		t.Fatalf("Update missing err=%v, want ErrNotFound", err)
	}
	if _, err := store.Get(ctx, ref, "does-not-exist"); !errors.Is(err, docstoreport.ErrNotFound) {
		t.Fatalf("Get missing err=%v, want ErrNotFound", err)
	}

	// Scoping: other groups and collections never see the record.
	if _, err := store.Get(ctx, otherGroup, id); !errors.Is(err, docstoreport.ErrNotFound) {
		t.Fatalf("cross-group Get err=%v", err)
	}
	if err := store.Update(ctx, otherColl, id, docstoreport.Fields{"x": 1.0}); !errors.Is(err, docstoreport.ErrNotFound) {
		t.Fatalf("cross-collection Update err=%v", err)
	}
	others, err := store.List(ctx, otherGroup)
	if err != nil || len(others) != 0 {
		t.Fatalf("List other group len=%d err=%v", len(others), err)
	}

	// Put: create with a fixed id, then merge.
	fixed := domain.RecordID("admin-" + uuid.NewString()[:8])
	if err := store.Put(ctx, ref, fixed, docstoreport.Fields{"title": "Fixed", "isAdmin": true}); err != nil {
		t.Fatalf("Put create: %v", err)
	}
	if err := store.Put(ctx, ref, fixed, docstoreport.Fields{"avatar": "🐻"}); err != nil {
		t.Fatalf("Put merge: %v", err)
	}
	d, err = store.Get(ctx, ref, fixed)
	if err != nil {
		t.Fatalf("Get fixed: %v", err)
	}
	if d.Fields["title"] != "Fixed" || d.Fields["avatar"] != "🐻" || d.Fields["isAdmin"] != true {
		t.Fatalf("fixed fields=%v", d.Fields)
	}

	// Nil fields store an empty document that later writes can merge into.
	emptyRef := docstoreport.Ref{Group: group + "-empty", Collection: domain.CollectionFood}
	emptyID, err := store.Add(ctx, emptyRef, nil)
	if err != nil {
		t.Fatalf("Add nil fields: %v", err)
	}
	if err := store.Update(ctx, emptyRef, emptyID, docstoreport.Fields{"name": "Tacos"}); err != nil {
		t.Fatalf("Update after nil Add: %v", err)
	}
	if err := store.Put(ctx, emptyRef, emptyID, docstoreport.Fields{"completed": true}); err != nil {
		t.Fatalf("Put after nil Add: %v", err)
	}
	if err := store.Put(ctx, emptyRef, "fixed-empty", nil); err != nil {
		t.Fatalf("Put nil fields: %v", err)
	}
	d, err = store.Get(ctx, emptyRef, emptyID)
	if err != nil {
		t.Fatalf("Get after nil Add: %v", err)
	}
	if d.Fields["name"] != "Tacos" || d.Fields["completed"] != true {
		t.Fatalf("fields after nil Add=%v", d.Fields)
	}

	all, err := store.List(ctx, ref)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List len=%d, want 2", len(all))
	}

	// Delete: removes, and is a no-op when absent.
	if err := store.Delete(ctx, ref, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, ref, id); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
	require.Eventually(t, func() bool {
		last := rec.last()
		return countID(last, id) == 0 && countID(last, fixed) == 1
	}, eventually, 10*time.Millisecond, "deleted record gone from snapshot")

	// Unsubscribe: no further snapshots, safe to repeat.
	unsub()
	unsub()
	before := rec.count()
	if _, err := store.Add(ctx, ref, docstoreport.Fields{"title": "After"}); err != nil {
		t.Fatalf("Add after unsubscribe: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if after := rec.count(); after != before {
		t.Fatalf("received %d snapshots after unsubscribe", after-before)
	}

	t.Run("two subscribers see the same change", func(t *testing.T) {
		a, b := &snapshotRecorder{}, &snapshotRecorder{}
		ua, err := store.Subscribe(ctx, otherColl, a.onData, a.onError)
		if err != nil {
			t.Fatalf("Subscribe a: %v", err)
		}
		ub, err := store.Subscribe(ctx, otherColl, b.onData, b.onError)
		if err != nil {
			t.Fatalf("Subscribe b: %v", err)
		}
		defer ua()
		defer ub()

		id, err := store.Add(ctx, otherColl, docstoreport.Fields{"name": fmt.Sprintf("item-%d", time.Now().UnixNano())})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		for name, r := range map[string]*snapshotRecorder{"a": a, "b": b} {
			require.Eventually(t, func() bool { return countID(r.last(), id) == 1 }, eventually, 10*time.Millisecond, "subscriber %s", name)
		}
	})
}
