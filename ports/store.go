package ports

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get and GetDel when the key does not exist or
// has expired.
var ErrNotFound = errors.New("store: key not found")

// Store is a key-value persistence substrate with TTL support. It backs
// the challenge store and the durable pending-flow record; a TTL of zero
// means no expiry.
type Store interface {
	// Set stores a value under key with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get retrieves the value stored under key.
	Get(ctx context.Context, key string) (string, error)

	// GetDel atomically retrieves and deletes the value stored under key.
	// Concurrent calls for the same key return the value to exactly one
	// caller; all others get ErrNotFound.
	GetDel(ctx context.Context, key string) (string, error)

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
