package counterstore

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the counter store could not be reached or
// returned a server-side failure. It is distinct from a key being absent:
// Get reports an absent key as found=false with a nil error.
//
// Callers branch on this with errors.Is and apply the fail-open or
// fail-closed policy appropriate to their call site.
var ErrUnavailable = errors.New("counter store unavailable")

// Store is the narrow interface over the shared key-value/counter service.
//
// All operations are safe for concurrent use by any number of requests.
// Incr is atomic at the store level; it is the primitive behind both the
// global admission counter and the fixed-window rate limiter.
type Store interface {
	// Get returns the value for key. found is false when the key does not
	// exist; that is a valid outcome, not an error.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes key and returns the number of keys deleted (0 or 1).
	Del(ctx context.Context, key string) (int64, error)

	// Incr atomically increments the integer value at key, creating it at
	// 1 if absent, and returns the incremented value.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets the TTL on an existing key. Returns false when the key
	// does not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
