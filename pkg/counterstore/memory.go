package counterstore

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map. It honors the same
// contract as RedisStore, including TTL expiry and atomic Incr, and is
// used in tests and Redis-less development.
//
// MemoryStore is thread-safe. Expired entries are dropped lazily on
// access; there is no background sweeper.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry

	// now is the clock, overridable in tests.
	now func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the store's clock. Tests use this to advance time
// past TTLs without sleeping.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// live returns the entry for key if present and unexpired, dropping it
// otherwise. Callers must hold s.mu.
func (s *MemoryStore) live(key string) *memoryEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil
	}
	return e
}

// Get returns the value for key.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value under key with the given TTL.
func (s *MemoryStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

// Del removes key.
func (s *MemoryStore) Del(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.live(key) == nil {
		return 0, nil
	}
	delete(s.entries, key)
	return 1, nil
}

// Incr atomically increments the counter at key, creating it at 1.
func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		s.entries[key] = &memoryEntry{value: "1"}
		return 1, nil
	}

	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		// Mirror Redis: INCR on a non-integer value is an error.
		return 0, unavailable("incr", key, err)
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	return n, nil
}

// Expire sets the TTL on key. Returns false when the key does not exist.
func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return false, nil
	}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	} else {
		e.expiresAt = time.Time{}
	}
	return true, nil
}
