package kvstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Store is a small local key-value store used for client-side state such as the session.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
