package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/pixeltrip/tripboard/internal/domain"
)

var ErrNotFound = errors.New("document not found")

// Fields is a JSON-compatible document body: values are strings, float64s, bools, nil,
// []any or map[string]any.
type Fields map[string]any

// Ref addresses one collection of one trip group.
type Ref struct {
	Group      domain.TripGroupID
	Collection domain.Collection
}

func (r Ref) String() string { return string(r.Group) + "/" + string(r.Collection) }

// Document is a stored document with its server-assigned metadata.
type Document struct {
	ID        domain.RecordID
	Fields    Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// Store is a per-trip-group document store with live snapshots.
//
// Semantics shared by every adapter:
//   - Subscribe delivers the full snapshot right after subscribing and again after every change
//     to the collection. Snapshots may coalesce several changes. Callbacks for one subscription
//     never run concurrently. The subscription ends on Unsubscribe or when ctx is done.
//   - Add assigns the id and timestamps.
//   - Update merges top-level fields and returns ErrNotFound when the document is missing.
//   - Put creates the document with the given id or merges fields into it.
//   - Delete is a no-op when the document is already absent.
type Store interface {
	Subscribe(ctx context.Context, ref Ref, onData func([]Document), onError func(error)) (Unsubscribe, error)
	List(ctx context.Context, ref Ref) ([]Document, error)
	Get(ctx context.Context, ref Ref, id domain.RecordID) (Document, error)
	Add(ctx context.Context, ref Ref, fields Fields) (domain.RecordID, error)
	Put(ctx context.Context, ref Ref, id domain.RecordID, fields Fields) error
	Update(ctx context.Context, ref Ref, id domain.RecordID, patch Fields) error
	Delete(ctx context.Context, ref Ref, id domain.RecordID) error
}
