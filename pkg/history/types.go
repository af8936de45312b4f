package history

import (
	"context"
	"time"
)

// Record is a persisted rewrite. Created once at the end of a successful
// stream; never mutated.
type Record struct {
	// ID is the record identifier (UUID).
	ID string

	// UserID is the owner.
	UserID string

	// RawInput is the text the user submitted.
	RawInput string

	// Variations are the parsed result segments, in generation order.
	Variations []string

	// Tone is the tone the variations were generated with.
	Tone string

	// TokenCount is the summed prompt and completion token count.
	TokenCount int

	// Model is the backend model identifier.
	Model string

	// DurationMs is the wall-clock generation duration.
	DurationMs int64

	// CreatedAt is when the record was persisted.
	CreatedAt time.Time

	// ExpiresAt is when the record becomes eligible for the stale sweep,
	// derived from the owner's plan retention at write time.
	ExpiresAt time.Time
}

// ListOptions controls cursor-paged listing.
type ListOptions struct {
	// Cursor is the ID of the last record of the previous page; empty
	// for the first page.
	Cursor string

	// Limit is the page size. Default: 10.
	Limit int
}

// Store persists rewrite records.
type Store interface {
	// Save persists a record. The record's ID must be set.
	Save(ctx context.Context, rec *Record) error

	// ListByUser returns the user's unexpired records, newest first,
	// with keyset pagination. nextCursor is empty on the last page.
	ListByUser(ctx context.Context, userID string, opts ListOptions) (records []*Record, nextCursor string, err error)

	// GetByID returns the record if it exists and belongs to userID,
	// nil otherwise.
	GetByID(ctx context.Context, id, userID string) (*Record, error)

	// Delete removes the record if it belongs to userID. Returns false
	// when no such record exists.
	Delete(ctx context.Context, id, userID string) (bool, error)

	// DeleteStale removes every record whose expiry has passed and
	// returns the number deleted.
	DeleteStale(ctx context.Context, now time.Time) (int, error)

	// Close releases the underlying store.
	Close() error
}
