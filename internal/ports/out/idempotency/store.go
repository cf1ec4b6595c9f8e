package idempotency

import (
	"context"
	"time"

	"github.com/pixeltrip/tripboard/internal/domain"
)

// DefaultTTL bounds how long a stored response can be replayed.
const DefaultTTL = 24 * time.Hour

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request uniquely for idempotency purposes:
// key + trip group + participant + route + request body hash.
// Route is represented as HTTP method + path template (e.g. "POST /v1/lodging").
type Fingerprint struct {
	Key         Key
	TripGroup   domain.TripGroupID
	Participant domain.ParticipantID
	Method      string
	Route       string
	BodyHash    string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}
