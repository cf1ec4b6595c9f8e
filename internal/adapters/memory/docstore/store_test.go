package docstore

import (
	"context"
	"testing"
	"time"

	memclock "github.com/pixeltrip/tripboard/internal/adapters/memory/clock"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

func TestStore_TimestampsFromClock(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	s := NewStore(clk)
	s.SetNewIDForTest(func() domain.RecordID { return "doc-1" })
	ref := docstore.Ref{Group: "g1", Collection: domain.CollectionExpenses}

	id, err := s.Add(context.Background(), ref, docstore.Fields{"amount": 12.5})
	if err != nil || id != "doc-1" {
		t.Fatalf("Add id=%q err=%v", id, err)
	}
	clk.Advance(time.Minute)
	if err := s.Update(context.Background(), ref, id, docstore.Fields{"amount": 13.0}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	d, err := s.Get(context.Background(), ref, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !d.CreatedAt.Equal(time.Unix(100, 0)) || !d.UpdatedAt.Equal(time.Unix(160, 0)) {
		t.Fatalf("createdAt=%v updatedAt=%v", d.CreatedAt, d.UpdatedAt)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	s := NewStore(nil)
	ref := docstore.Ref{Group: "g1", Collection: domain.CollectionLodging}
	id, err := s.Add(context.Background(), ref, docstore.Fields{
		"votes": map[string]any{"like": []any{"Ana"}},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	d, _ := s.Get(context.Background(), ref, id)
	d.Fields["votes"].(map[string]any)["like"] = []any{"Mallory"}

	again, _ := s.Get(context.Background(), ref, id)
	like := again.Fields["votes"].(map[string]any)["like"].([]any)
	if len(like) != 1 || like[0] != "Ana" {
		t.Fatalf("stored document was mutated through a returned copy: %v", like)
	}
}
