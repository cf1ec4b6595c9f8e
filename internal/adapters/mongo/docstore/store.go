// Package docstore is the MongoDB implementation of the trip document store. Live snapshots
// are driven by a change stream, which requires a replica set or a hosted cluster.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/pixeltrip/tripboard/internal/adapters/feed"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

// CollectionName is the Mongo collection holding every trip document.
const CollectionName = "trip_documents"

type record struct {
	ID         string    `bson:"_id"`
	Group      string    `bson:"group"`
	Collection string    `bson:"collection"`
	DocID      string    `bson:"doc_id"`
	Data       bson.M    `bson:"data"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
}

// Store is safe for concurrent use.
type Store struct {
	coll *mongo.Collection
	log  *zap.Logger
	hub  *feed.Hub
	now  func() time.Time
}

func NewStore(db *mongo.Database, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		coll: db.Collection(CollectionName),
		log:  log,
		hub:  feed.NewHub(),
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Connect opens a client for uri and pings it.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("missing mongo uri")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the listing index. It is safe to run on every start.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "group", Value: 1},
			{Key: "collection", Value: 1},
			{Key: "created_at", Value: 1},
		},
	})
	return err
}

func (s *Store) Subscribe(ctx context.Context, ref docstore.Ref, onData func([]docstore.Document), onError func(error)) (docstore.Unsubscribe, error) {
	load := func(ctx context.Context) ([]docstore.Document, error) {
		return s.List(ctx, ref)
	}
	return s.hub.Subscribe(ctx, ref, load, onData, onError), nil
}

func (s *Store) List(ctx context.Context, ref docstore.Ref) ([]docstore.Document, error) {
	cur, err := s.coll.Find(ctx,
		bson.D{{Key: "group", Value: string(ref.Group)}, {Key: "collection", Value: string(ref.Collection)}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "doc_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var recs []record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	out := make([]docstore.Document, 0, len(recs))
	for _, r := range recs {
		out = append(out, toDocument(r))
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, ref docstore.Ref, id domain.RecordID) (docstore.Document, error) {
	var r record
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key(ref, id)}}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, err
	}
	return toDocument(r), nil
}

func (s *Store) Add(ctx context.Context, ref docstore.Ref, fields docstore.Fields) (domain.RecordID, error) {
	id := domain.RecordID(uuid.NewString())
	now := s.now()
	data := bson.M{}
	for k, v := range fields {
		data[k] = v
	}
	_, err := s.coll.InsertOne(ctx, record{
		ID:         key(ref, id),
		Group:      string(ref.Group),
		Collection: string(ref.Collection),
		DocID:      string(id),
		Data:       data,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return "", err
	}
	s.hub.Publish(ref)
	return id, nil
}

func (s *Store) Put(ctx context.Context, ref docstore.Ref, id domain.RecordID, fields docstore.Fields) error {
	now := s.now()
	update := bson.D{
		{Key: "$set", Value: setFields(fields, now)},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "group", Value: string(ref.Group)},
			{Key: "collection", Value: string(ref.Collection)},
			{Key: "doc_id", Value: string(id)},
			{Key: "created_at", Value: now},
		}},
	}
	_, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: key(ref, id)}}, update, options.Update().SetUpsert(true))
	if err != nil {
		return err
	}
	s.hub.Publish(ref)
	return nil
}

func (s *Store) Update(ctx context.Context, ref docstore.Ref, id domain.RecordID, patch docstore.Fields) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: key(ref, id)}},
		bson.D{{Key: "$set", Value: setFields(patch, s.now())}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	s.hub.Publish(ref)
	return nil
}

func (s *Store) Delete(ctx context.Context, ref docstore.Ref, id domain.RecordID) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key(ref, id)}})
	if err != nil {
		return err
	}
	if res.DeletedCount > 0 {
		s.hub.Publish(ref)
	}
	return nil
}

// Watch relays change stream events to local subscribers until ctx is done, reopening the
// stream after errors.
func (s *Store) Watch(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace", "delete"}}}},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "operationType", Value: 1}, {Key: "documentKey", Value: 1}}}},
	}
	backoff := 250 * time.Millisecond
	for {
		err := s.watchOnce(ctx, pipeline)
		if ctx.Err() != nil {
			return nil
		}
		s.log.Warn("mongo change stream closed", zap.Error(err), zap.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 10*time.Second)
		for _, ref := range s.hub.Refs() {
			s.hub.Publish(ref)
		}
	}
}

func (s *Store) watchOnce(ctx context.Context, pipeline mongo.Pipeline) error {
	cs, err := s.coll.Watch(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("open change stream: %w", err)
	}
	defer cs.Close(context.Background())

	for cs.Next(ctx) {
		var ev changeEvent
		if err := cs.Decode(&ev); err != nil {
			s.log.Warn("ignoring undecodable change event", zap.Error(err))
			continue
		}
		ref, _, ok := parseKey(ev.DocumentKey.ID)
		if !ok {
			continue
		}
		s.hub.Publish(ref)
	}
	return cs.Err()
}

func key(ref docstore.Ref, id domain.RecordID) string {
	return string(ref.Group) + "/" + string(ref.Collection) + "/" + string(id)
}

// parseKey splits from the right: collection names and ids never contain '/', groups may.
func parseKey(k string) (docstore.Ref, domain.RecordID, bool) {
	i := strings.LastIndexByte(k, '/')
	if i <= 0 {
		return docstore.Ref{}, "", false
	}
	rest, id := k[:i], k[i+1:]
	j := strings.LastIndexByte(rest, '/')
	if j <= 0 {
		return docstore.Ref{}, "", false
	}
	return docstore.Ref{Group: domain.TripGroupID(rest[:j]), Collection: domain.Collection(rest[j+1:])}, domain.RecordID(id), true
}

func setFields(fields docstore.Fields, now time.Time) bson.D {
	set := bson.D{{Key: "updated_at", Value: now}}
	for k, v := range fields {
		set = append(set, bson.E{Key: "data." + k, Value: v})
	}
	return set
}

func toDocument(r record) docstore.Document {
	fields := docstore.Fields{}
	for k, v := range r.Data {
		fields[k] = normalize(v)
	}
	return docstore.Document{
		ID:        domain.RecordID(r.DocID),
		Fields:    fields,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// normalize converts decoded BSON values into the JSON-compatible shapes other adapters return.
func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalize(vv)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalize(vv)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = normalize(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = normalize(vv)
		}
		return out
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
