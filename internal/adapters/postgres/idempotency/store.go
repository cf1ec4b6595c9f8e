package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixeltrip/tripboard/internal/ports/out/idempotency"
)

// Store keeps idempotency records in the idempotency_keys table. Rows older than the TTL
// are invisible to Get and removed by Purge.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	now  func() time.Time
}

func NewStore(pool *pgxpool.Pool) *Store {
	return NewStoreWithTTL(pool, idempotency.DefaultTTL)
}

func NewStoreWithTTL(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

func fingerprintArgs(fp idempotency.Fingerprint) pgx.NamedArgs {
	return pgx.NamedArgs{
		"key":         string(fp.Key),
		"tripGroup":   string(fp.TripGroup),
		"participant": string(fp.Participant),
		"method":      fp.Method,
		"route":       fp.Route,
		"bodyHash":    fp.BodyHash,
	}
}

// cutoff is the oldest created_at still replayable. A zero ttl never expires.
func (s *Store) cutoff() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(-s.ttl)
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	args := fingerprintArgs(fp)
	args["cutoff"] = s.cutoff()

	var rec idempotency.Record
	err := s.pool.QueryRow(ctx, `
		SELECT status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE (idempotency_key, trip_group, participant_id, method, route, body_hash)
		    = (@key, @tripGroup, @participant, @method, @route, @bodyHash)
		  AND created_at >= @cutoff`, args).
		Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return idempotency.Record{}, false, nil
	case err != nil:
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

// Put stores rec, replacing an existing row for the same fingerprint.
func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if rec.Body == nil {
		rec.Body = []byte{}
	}
	args := fingerprintArgs(fp)
	args["status"] = rec.StatusCode
	args["contentType"] = rec.ContentType
	args["body"] = rec.Body
	args["createdAt"] = rec.CreatedAt.UTC()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_keys
			(idempotency_key, trip_group, participant_id, method, route, body_hash,
			 status_code, content_type, body, created_at)
		VALUES
			(@key, @tripGroup, @participant, @method, @route, @bodyHash,
			 @status, @contentType, @body, @createdAt)
		ON CONFLICT (idempotency_key, trip_group, participant_id, method, route, body_hash)
		DO UPDATE SET
			status_code  = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body         = EXCLUDED.body,
			created_at   = EXCLUDED.created_at`, args)
	return err
}

// Purge deletes expired rows and reports how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	if s.ttl <= 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < @cutoff`,
		pgx.NamedArgs{"cutoff": s.cutoff()})
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
