package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-process deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Save persists a record.
func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if rec.ID == "" {
		return fmt.Errorf("record id cannot be empty")
	}
	if rec.UserID == "" {
		return fmt.Errorf("record user id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	cp.Variations = append([]string(nil), rec.Variations...)
	s.records[rec.ID] = &cp
	return nil
}

// ListByUser returns the user's unexpired records, newest first.
func (s *MemoryStore) ListByUser(_ context.Context, userID string, opts ListOptions) ([]*Record, string, error) {
	if userID == "" {
		return nil, "", fmt.Errorf("user id cannot be empty")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	now := time.Now()

	s.mu.RLock()
	var all []*Record
	for _, rec := range s.records {
		if rec.UserID == userID && rec.ExpiresAt.After(now) {
			all = append(all, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	start := 0
	if opts.Cursor != "" {
		for i, rec := range all {
			if rec.ID == opts.Cursor {
				start = i + 1
				break
			}
		}
	}
	if start >= len(all) {
		return nil, "", nil
	}

	end := start + limit
	nextCursor := ""
	if end < len(all) {
		nextCursor = all[end-1].ID
	} else {
		end = len(all)
	}

	page := make([]*Record, 0, end-start)
	for _, rec := range all[start:end] {
		cp := *rec
		cp.Variations = append([]string(nil), rec.Variations...)
		page = append(page, &cp)
	}

	return page, nextCursor, nil
}

// GetByID returns the record if it exists and belongs to userID.
func (s *MemoryStore) GetByID(_ context.Context, id, userID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok || rec.UserID != userID {
		return nil, nil
	}

	cp := *rec
	cp.Variations = append([]string(nil), rec.Variations...)
	return &cp, nil
}

// Delete removes the record if it belongs to userID.
func (s *MemoryStore) Delete(_ context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.UserID != userID {
		return false, nil
	}

	delete(s.records, id)
	return true, nil
}

// DeleteStale removes every record whose expiry has passed.
func (s *MemoryStore) DeleteStale(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, rec := range s.records {
		if !rec.ExpiresAt.After(now) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
