// Package channel is the trip-group state channel: a typed view over one collection of the
// document store that every entity module configures with its record type.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pixeltrip/tripboard/internal/app/apperr"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

// Record is a decoded document.
type Record[T any] struct {
	ID        domain.RecordID
	CreatedAt time.Time
	UpdatedAt time.Time
	Value     T
}

// Channel is safe for concurrent use.
type Channel[T any] struct {
	store      docstore.Store
	collection domain.Collection
}

func New[T any](store docstore.Store, collection domain.Collection) *Channel[T] {
	return &Channel[T]{store: store, collection: collection}
}

func (c *Channel[T]) Collection() domain.Collection { return c.collection }

func (c *Channel[T]) ref(group domain.TripGroupID) (docstore.Ref, error) {
	if group == "" {
		return docstore.Ref{}, apperr.Validation("missing trip group", nil)
	}
	return docstore.Ref{Group: group, Collection: c.collection}, nil
}

// Subscribe delivers the decoded snapshot of the group's collection on every change.
// Documents that fail to decode are left out of the snapshot and reported through onError.
// Storage failures go to onError as well; the subscription stays alive.
func (c *Channel[T]) Subscribe(ctx context.Context, group domain.TripGroupID, onData func([]Record[T]), onError func(error)) (docstore.Unsubscribe, error) {
	ref, err := c.ref(group)
	if err != nil {
		return nil, err
	}
	if onError == nil {
		onError = func(error) {}
	}
	unsub, err := c.store.Subscribe(ctx, ref,
		func(docs []docstore.Document) {
			recs, decodeErr := decodeAll[T](docs)
			onData(recs)
			if decodeErr != nil {
				onError(apperr.SyncFailure(decodeErr))
			}
		},
		func(err error) { onError(apperr.SyncFailure(err)) },
	)
	if err != nil {
		return nil, storeError(err)
	}
	return unsub, nil
}

func (c *Channel[T]) List(ctx context.Context, group domain.TripGroupID) ([]Record[T], error) {
	ref, err := c.ref(group)
	if err != nil {
		return nil, err
	}
	docs, err := c.store.List(ctx, ref)
	if err != nil {
		return nil, storeError(err)
	}
	recs, err := decodeAll[T](docs)
	if err != nil {
		return nil, apperr.SyncFailure(err)
	}
	return recs, nil
}

func (c *Channel[T]) Get(ctx context.Context, group domain.TripGroupID, id domain.RecordID) (Record[T], error) {
	ref, err := c.ref(group)
	if err != nil {
		return Record[T]{}, err
	}
	d, err := c.store.Get(ctx, ref, id)
	if err != nil {
		return Record[T]{}, storeError(err)
	}
	rec, err := decode[T](d)
	if err != nil {
		return Record[T]{}, apperr.SyncFailure(err)
	}
	return rec, nil
}

// Add stores v under a storage-assigned id. The record reaches subscribers through their
// next snapshot.
func (c *Channel[T]) Add(ctx context.Context, group domain.TripGroupID, v T) (domain.RecordID, error) {
	ref, err := c.ref(group)
	if err != nil {
		return "", err
	}
	fields, err := Encode(v)
	if err != nil {
		return "", err
	}
	id, err := c.store.Add(ctx, ref, fields)
	if err != nil {
		return "", storeError(err)
	}
	return id, nil
}

// Put creates the record with a caller-chosen id or merges v into it.
func (c *Channel[T]) Put(ctx context.Context, group domain.TripGroupID, id domain.RecordID, v T) error {
	ref, err := c.ref(group)
	if err != nil {
		return err
	}
	fields, err := Encode(v)
	if err != nil {
		return err
	}
	if err := c.store.Put(ctx, ref, id, fields); err != nil {
		return storeError(err)
	}
	return nil
}

// Update merges top-level fields. Keys are the JSON names of T's fields.
func (c *Channel[T]) Update(ctx context.Context, group domain.TripGroupID, id domain.RecordID, fields docstore.Fields) error {
	ref, err := c.ref(group)
	if err != nil {
		return err
	}
	normalized, err := Encode(fields)
	if err != nil {
		return err
	}
	if err := c.store.Update(ctx, ref, id, normalized); err != nil {
		return storeError(err)
	}
	return nil
}

// Delete removes the record. Deleting an absent record succeeds.
func (c *Channel[T]) Delete(ctx context.Context, group domain.TripGroupID, id domain.RecordID) error {
	ref, err := c.ref(group)
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, ref, id); err != nil {
		return storeError(err)
	}
	return nil
}

// DeleteIf loads the record, asks allow, and deletes only when allow returns nil.
// An absent record is already deleted and succeeds without consulting allow.
func (c *Channel[T]) DeleteIf(ctx context.Context, group domain.TripGroupID, id domain.RecordID, allow func(Record[T]) error) error {
	rec, err := c.Get(ctx, group, id)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil
		}
		return err
	}
	if err := allow(rec); err != nil {
		return err
	}
	return c.Delete(ctx, group, id)
}

func storeError(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.NotFound("record not found")
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.SyncFailure(err)
}

// Encode converts v into JSON-compatible document fields.
func Encode(v any) (docstore.Fields, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var fields docstore.Fields
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	if fields == nil {
		fields = docstore.Fields{}
	}
	return fields, nil
}

func decode[T any](d docstore.Document) (Record[T], error) {
	rec := Record[T]{ID: d.ID, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
	b, err := json.Marshal(d.Fields)
	if err != nil {
		return rec, fmt.Errorf("decode %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(b, &rec.Value); err != nil {
		return rec, fmt.Errorf("decode %s: %w", d.ID, err)
	}
	return rec, nil
}

func decodeAll[T any](docs []docstore.Document) ([]Record[T], error) {
	out := make([]Record[T], 0, len(docs))
	var errs []error
	for _, d := range docs {
		rec, err := decode[T](d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, rec)
	}
	return out, errors.Join(errs...)
}
