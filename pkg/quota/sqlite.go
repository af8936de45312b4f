package quota

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteLedger implements Ledger using SQLite for persistence. It is
// suitable for single-instance deployments where quota must survive
// restarts.
//
// SQLiteLedger uses a write-ahead log (WAL) for better concurrent
// performance. The conditional-update consume relies on SQLite executing
// each statement atomically; with a single writer connection there is no
// window for two callers to pass the same check.
type SQLiteLedger struct {
	db        *sql.DB
	closeOnce sync.Once

	consumeStmt *sql.Stmt
	ensureStmt  *sql.Stmt
	refundStmt  *sql.Stmt
	readStmt    *sql.Stmt
	resetStmt   *sql.Stmt
}

// SQLiteLedgerConfig configures the SQLite ledger.
type SQLiteLedgerConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteLedger creates a new SQLite ledger with default settings.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	return NewSQLiteLedgerWithConfig(SQLiteLedgerConfig{DBPath: dbPath})
}

// NewSQLiteLedgerWithConfig creates a new SQLite ledger with custom
// configuration.
func NewSQLiteLedgerWithConfig(cfg SQLiteLedgerConfig) (*SQLiteLedger, error) {
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

	ledger := &SQLiteLedger{db: db}

	if err := ledger.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := ledger.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return ledger, nil
}

// initSchema creates the ledger schema if it doesn't exist.
func (l *SQLiteLedger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quota_ledger (
		user_id  TEXT PRIMARY KEY,
		used     INTEGER NOT NULL DEFAULT 0 CHECK (used >= 0),
		reset_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_quota_reset_at ON quota_ledger(reset_at);
	`

	_, err := l.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (l *SQLiteLedger) prepareStatements() error {
	var err error

	// The consume decision: increment only while under the limit, in one
	// statement. RETURNING reports the post-increment counter.
	l.consumeStmt, err = l.db.Prepare(`
		UPDATE quota_ledger
		SET used = used + 1
		WHERE user_id = ? AND used < ?
		RETURNING used
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare consume statement: %w", err)
	}

	l.ensureStmt, err = l.db.Prepare(`
		INSERT INTO quota_ledger (user_id, used, reset_at)
		VALUES (?, 0, ?)
		ON CONFLICT (user_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare ensure statement: %w", err)
	}

	l.refundStmt, err = l.db.Prepare(`
		UPDATE quota_ledger
		SET used = MAX(used - 1, 0)
		WHERE user_id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare refund statement: %w", err)
	}

	l.readStmt, err = l.db.Prepare(`
		SELECT used, reset_at FROM quota_ledger WHERE user_id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare read statement: %w", err)
	}

	l.resetStmt, err = l.db.Prepare(`
		UPDATE quota_ledger
		SET used = 0, reset_at = ?
		WHERE reset_at <= ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare reset statement: %w", err)
	}

	return nil
}

// Consume atomically consumes one quota slot if used < limit.
func (l *SQLiteLedger) Consume(ctx context.Context, userID string, limit int) (ConsumeResult, error) {
	if userID == "" {
		return ConsumeResult{}, fmt.Errorf("user id cannot be empty")
	}
	if limit <= 0 {
		return ConsumeResult{}, fmt.Errorf("limit must be positive, got %d", limit)
	}

	// Entries are created lazily on first consume. The insert is a no-op
	// for existing users and never touches the used-counter.
	if _, err := l.ensureStmt.ExecContext(ctx, userID, NextCycleBoundary(time.Now()).Unix()); err != nil {
		return ConsumeResult{}, fmt.Errorf("failed to ensure ledger entry: %w", err)
	}

	var used int
	err := l.consumeStmt.QueryRowContext(ctx, userID, limit).Scan(&used)
	if err == sql.ErrNoRows {
		// Limit already met; report the counter without mutating it.
		snap, readErr := l.Read(ctx, userID)
		if readErr != nil {
			return ConsumeResult{OK: false, Used: limit}, nil
		}
		return ConsumeResult{OK: false, Used: snap.Used}, nil
	}
	if err != nil {
		return ConsumeResult{}, fmt.Errorf("failed to consume quota: %w", err)
	}

	return ConsumeResult{OK: true, Used: used}, nil
}

// Refund decrements the user's used-counter by one, floored at zero.
func (l *SQLiteLedger) Refund(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	if _, err := l.refundStmt.ExecContext(ctx, userID); err != nil {
		return fmt.Errorf("failed to refund quota: %w", err)
	}
	return nil
}

// Read returns a display snapshot of the user's entry. Unknown users read
// as zero usage.
func (l *SQLiteLedger) Read(ctx context.Context, userID string) (Snapshot, error) {
	var (
		used    int
		resetAt int64
	)

	err := l.readStmt.QueryRowContext(ctx, userID).Scan(&used, &resetAt)
	if err == sql.ErrNoRows {
		return Snapshot{Used: 0, ResetAt: NextCycleBoundary(time.Now())}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read ledger entry: %w", err)
	}

	return Snapshot{Used: used, ResetAt: time.Unix(resetAt, 0).UTC()}, nil
}

// ResetCycle zeroes every entry due for reset and advances it to the next
// cycle boundary.
func (l *SQLiteLedger) ResetCycle(ctx context.Context, now time.Time) (int, error) {
	result, err := l.resetStmt.ExecContext(ctx, NextCycleBoundary(now).Unix(), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to reset cycle: %w", err)
	}

	reset, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(reset), nil
}

// Close releases the database. Close is idempotent.
func (l *SQLiteLedger) Close() error {
	var closeErr error

	l.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{l.consumeStmt, l.ensureStmt, l.refundStmt, l.readStmt, l.resetStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		if l.db != nil {
			_, _ = l.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = l.db.Close()
		}
	})

	return closeErr
}
