package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteConfig contains configuration for the SQLite ledger backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/ledger.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	rule TEXT NOT NULL,
	resource TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	actions TEXT NOT NULL,
	dry_run INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_run ON ledger_entries(run_id);
CREATE INDEX IF NOT EXISTS idx_ledger_created ON ledger_entries(created_at);
`

// NewSQLiteStore opens (creating if needed) a SQLite-backed ledger.
func NewSQLiteStore(config *SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", config.Path, config.BusyTimeout.Milliseconds())
	if config.WALMode {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing ledger schema: %w", err)
	}

	logger.Debug("ledger opened", "path", config.Path, "wal", config.WALMode)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Record implements Store.
func (s *SQLiteStore) Record(ctx context.Context, entry *Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (run_id, rule, resource, resource_type, actions, dry_run, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.Rule, entry.Resource, entry.ResourceType, entry.Actions, entry.DryRun, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording ledger entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading ledger entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListRun implements Store.
func (s *SQLiteStore) ListRun(ctx context.Context, runID string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, rule, resource, resource_type, actions, dry_run, created_at
		 FROM ledger_entries WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing ledger entries: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RunID, &e.Rule, &e.Resource, &e.ResourceType, &e.Actions, &e.DryRun, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Prune implements Store.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM ledger_entries WHERE created_at < ?`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning ledger: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading prune count: %w", err)
	}
	if removed > 0 {
		s.logger.Info("pruned ledger entries", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
