package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("storage closed")

// KV is the persistence capability handed to the ticket store. Values are
// opaque bytes addressed by collection name.
type KV interface {
	// Get returns the value stored under key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// SetMany writes all entries atomically: either every key is updated or none.
	SetMany(ctx context.Context, entries map[string][]byte) error
	Ping(ctx context.Context) error
	Close() error
}
