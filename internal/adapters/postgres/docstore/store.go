package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pixeltrip/tripboard/internal/adapters/feed"
	"github.com/pixeltrip/tripboard/internal/domain"
	"github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

// Channel is the LISTEN/NOTIFY channel carrying change signals between API instances.
const Channel = "trip_documents"

// Store is a Postgres implementation of docstore.Store. Documents live in one JSONB table;
// every write notifies Channel inside its transaction so other instances running Listen
// refresh their subscribers.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
	hub  *feed.Hub

	listening atomic.Bool
}

func NewStore(pool *pgxpool.Pool, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{pool: pool, log: log, hub: feed.NewHub()}
}

type changeSignal struct {
	Group      string `json:"group"`
	Collection string `json:"collection"`
}

func (s *Store) Subscribe(ctx context.Context, ref docstore.Ref, onData func([]docstore.Document), onError func(error)) (docstore.Unsubscribe, error) {
	if s.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	load := func(ctx context.Context) ([]docstore.Document, error) {
		return s.List(ctx, ref)
	}
	return s.hub.Subscribe(ctx, ref, load, onData, onError), nil
}

func (s *Store) List(ctx context.Context, ref docstore.Ref) ([]docstore.Document, error) {
	if s.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, data, created_at, updated_at
		FROM trip_documents
		WHERE trip_group = $1 AND collection = $2
		ORDER BY created_at, id
	`, string(ref.Group), string(ref.Collection))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]docstore.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, ref docstore.Ref, id domain.RecordID) (docstore.Document, error) {
	if s.pool == nil {
		return docstore.Document{}, errors.New("nil postgres pool")
	}
	row := s.pool.QueryRow(ctx, `
		SELECT id, data, created_at, updated_at
		FROM trip_documents
		WHERE trip_group = $1 AND collection = $2 AND id = $3
	`, string(ref.Group), string(ref.Collection), string(id))
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, err
	}
	return d, nil
}

func (s *Store) Add(ctx context.Context, ref docstore.Ref, fields docstore.Fields) (domain.RecordID, error) {
	if s.pool == nil {
		return "", errors.New("nil postgres pool")
	}
	data, err := marshalFields(fields)
	if err != nil {
		return "", err
	}
	id := domain.RecordID(uuid.NewString())
	err = s.write(ctx, ref, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO trip_documents (trip_group, collection, id, data, created_at, updated_at)
			VALUES ($1, $2, $3, $4::jsonb, now(), now())
		`, string(ref.Group), string(ref.Collection), string(id), data)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Put(ctx context.Context, ref docstore.Ref, id domain.RecordID, fields docstore.Fields) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	data, err := marshalFields(fields)
	if err != nil {
		return err
	}
	return s.write(ctx, ref, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO trip_documents (trip_group, collection, id, data, created_at, updated_at)
			VALUES ($1, $2, $3, $4::jsonb, now(), now())
			ON CONFLICT (trip_group, collection, id)
			DO UPDATE SET
				data = trip_documents.data || EXCLUDED.data,
				updated_at = EXCLUDED.updated_at
		`, string(ref.Group), string(ref.Collection), string(id), data)
		return err
	})
}

func (s *Store) Update(ctx context.Context, ref docstore.Ref, id domain.RecordID, patch docstore.Fields) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	data, err := marshalFields(patch)
	if err != nil {
		return err
	}
	return s.write(ctx, ref, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE trip_documents
			SET data = data || $4::jsonb, updated_at = now()
			WHERE trip_group = $1 AND collection = $2 AND id = $3
		`, string(ref.Group), string(ref.Collection), string(id), data)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return docstore.ErrNotFound
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, ref docstore.Ref, id domain.RecordID) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	return s.write(ctx, ref, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM trip_documents
			WHERE trip_group = $1 AND collection = $2 AND id = $3
		`, string(ref.Group), string(ref.Collection), string(id))
		return err
	})
}

// write runs fn and the change notification in one transaction, then wakes local subscribers.
func (s *Store) write(ctx context.Context, ref docstore.Ref, fn func(tx pgx.Tx) error) error {
	payload, err := json.Marshal(changeSignal{Group: string(ref.Group), Collection: string(ref.Collection)})
	if err != nil {
		return err
	}
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, Channel, string(payload))
		return err
	})
	if err != nil {
		return err
	}
	s.hub.Publish(ref)
	return nil
}

// Listen relays change notifications from other instances to local subscribers until ctx is
// done. Lost connections are re-established with a capped backoff; every live ref is
// refreshed after a reconnect since notifications may have been missed meanwhile.
func (s *Store) Listen(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	backoff := 250 * time.Millisecond
	for {
		err := s.listenOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		s.log.Warn("postgres listener disconnected", zap.Error(err), zap.Duration("retry_in", backoff))
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

func (s *Store) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.log.Info("postgres listener started", zap.String("channel", Channel))
	s.listening.Store(true)
	defer s.listening.Store(false)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		var sig changeSignal
		if err := json.Unmarshal([]byte(n.Payload), &sig); err != nil {
			s.log.Warn("ignoring malformed change signal", zap.String("payload", n.Payload), zap.Error(err))
			continue
		}
		s.hub.Publish(docstore.Ref{Group: domain.TripGroupID(sig.Group), Collection: domain.Collection(sig.Collection)})
	}
}

// Listening reports whether the listener connection is currently subscribed to Channel.
func (s *Store) Listening() bool { return s.listening.Load() }

func marshalFields(f docstore.Fields) (string, error) {
	if f == nil {
		f = docstore.Fields{}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

func scanDocument(row pgx.Row) (docstore.Document, error) {
	var (
		id   string
		data []byte
		d    docstore.Document
	)
	if err := row.Scan(&id, &data, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return docstore.Document{}, err
	}
	d.ID = domain.RecordID(id)
	d.Fields = docstore.Fields{}
	if err := json.Unmarshal(data, &d.Fields); err != nil {
		return docstore.Document{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return d, nil
}
