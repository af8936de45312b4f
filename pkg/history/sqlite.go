package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite for persistence.
type SQLiteStore struct {
	db        *sql.DB
	closeOnce sync.Once

	saveStmt   *sql.Stmt
	getStmt    *sql.Stmt
	deleteStmt *sql.Stmt
	staleStmt  *sql.Stmt
}

// SQLiteStoreConfig configures the SQLite history store.
type SQLiteStoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a new SQLite history store with default settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{DBPath: dbPath})
}

// NewSQLiteStoreWithConfig creates a new SQLite history store with custom
// configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return store, nil
}

// initSchema creates the history schema if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rewrites (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		raw_input   TEXT NOT NULL,
		variations  TEXT NOT NULL,
		tone        TEXT NOT NULL,
		token_count INTEGER NOT NULL,
		model       TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at  INTEGER NOT NULL,
		expires_at  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rewrites_user_created ON rewrites(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_rewrites_expires ON rewrites(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO rewrites (id, user_id, raw_input, variations, tone, token_count, model, duration_ms, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT id, user_id, raw_input, variations, tone, token_count, model, duration_ms, created_at, expires_at
		FROM rewrites
		WHERE id = ? AND user_id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`
		DELETE FROM rewrites WHERE id = ? AND user_id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.staleStmt, err = s.db.Prepare(`
		DELETE FROM rewrites WHERE expires_at <= ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare stale statement: %w", err)
	}

	return nil
}

// Save persists a record.
func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if rec.ID == "" {
		return fmt.Errorf("record id cannot be empty")
	}
	if rec.UserID == "" {
		return fmt.Errorf("record user id cannot be empty")
	}

	variationsJSON, err := json.Marshal(rec.Variations)
	if err != nil {
		return fmt.Errorf("failed to marshal variations: %w", err)
	}

	_, err = s.saveStmt.ExecContext(ctx,
		rec.ID,
		rec.UserID,
		rec.RawInput,
		string(variationsJSON),
		rec.Tone,
		rec.TokenCount,
		rec.Model,
		rec.DurationMs,
		rec.CreatedAt.Unix(),
		rec.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// ListByUser returns the user's unexpired records, newest first.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]*Record, string, error) {
	if userID == "" {
		return nil, "", fmt.Errorf("user id cannot be empty")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	now := time.Now().Unix()

	// Keyset pagination: resolve the cursor record's position, then page
	// strictly after it. Fetch one extra row to detect a next page.
	var rows *sql.Rows
	var err error
	if opts.Cursor == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, user_id, raw_input, variations, tone, token_count, model, duration_ms, created_at, expires_at
			FROM rewrites
			WHERE user_id = ? AND expires_at > ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`, userID, now, limit+1)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT r.id, r.user_id, r.raw_input, r.variations, r.tone, r.token_count, r.model, r.duration_ms, r.created_at, r.expires_at
			FROM rewrites r, rewrites c
			WHERE c.id = ? AND c.user_id = ?
			  AND r.user_id = ? AND r.expires_at > ?
			  AND (r.created_at < c.created_at OR (r.created_at = c.created_at AND r.id < c.id))
			ORDER BY r.created_at DESC, r.id DESC
			LIMIT ?
		`, opts.Cursor, userID, userID, now, limit+1)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, "", err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating rows: %w", err)
	}

	nextCursor := ""
	if len(records) > limit {
		records = records[:limit]
		nextCursor = records[limit-1].ID
	}

	return records, nextCursor, nil
}

// GetByID returns the record if it exists and belongs to userID.
func (s *SQLiteStore) GetByID(ctx context.Context, id, userID string) (*Record, error) {
	row := s.getStmt.QueryRowContext(ctx, id, userID)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the record if it belongs to userID.
func (s *SQLiteStore) Delete(ctx context.Context, id, userID string) (bool, error) {
	result, err := s.deleteStmt.ExecContext(ctx, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected > 0, nil
}

// DeleteStale removes every record whose expiry has passed.
func (s *SQLiteStore) DeleteStale(ctx context.Context, now time.Time) (int, error) {
	result, err := s.staleStmt.ExecContext(ctx, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale records: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(deleted), nil
}

// Close releases the database. Close is idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.saveStmt, s.getStmt, s.deleteStmt, s.staleStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord scans one rewrites row.
func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec            Record
		variationsJSON string
		createdAt      int64
		expiresAt      int64
	)

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.RawInput,
		&variationsJSON,
		&rec.Tone,
		&rec.TokenCount,
		&rec.Model,
		&rec.DurationMs,
		&createdAt,
		&expiresAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(variationsJSON), &rec.Variations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variations: %w", err)
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.ExpiresAt = time.Unix(expiresAt, 0).UTC()

	return &rec, nil
}
