// Package store provides a SQLite-backed telemetry log of chat exchanges.
// Every answered query is recorded with its answer source, confidence, and
// latency, which is what makes the fallback chain observable after the
// fact: a drift toward pattern or fallback answers shows up here even when
// every request returned 200.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Exchange is one recorded chat interaction.
type Exchange struct {
	// Query is the visitor's question.
	Query string
	// Source names the pipeline stage that produced the answer.
	Source string
	// Confidence is the pipeline's trust in the answer.
	Confidence float64
	// Latency is how long the pipeline took to answer.
	Latency time.Duration
	// CreatedAt is when the exchange was persisted.
	CreatedAt time.Time
}

// SourceStat aggregates exchange counts and confidence per answer source.
type SourceStat struct {
	// Source is the answer source label.
	Source string
	// Count is the number of exchanges answered by this source.
	Count int64
	// MeanConfidence is the average confidence across those exchanges.
	MeanConfidence float64
}

// ExchangeStore persists and summarizes chat exchanges. Implementations
// must be safe for concurrent use.
type ExchangeStore interface {
	// Append persists a single exchange.
	Append(ctx context.Context, e Exchange) error
	// Recent returns the most recent n exchanges, newest first.
	Recent(ctx context.Context, n int) ([]Exchange, error)
	// Stats returns per-source aggregates over the whole log.
	Stats(ctx context.Context) ([]SourceStat, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is an ExchangeStore backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
	// now is replaceable in tests.
	now func() time.Time
}

// DefaultDBPath returns the default path for the telemetry database. It
// resolves to ~/.folio/telemetry.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".folio")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "telemetry.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS exchanges (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    query       TEXT    NOT NULL,
    source      TEXT    NOT NULL,
    confidence  REAL    NOT NULL,
    latency_ms  INTEGER NOT NULL,
    created_at  INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_exchanges_created
    ON exchanges (created_at);
CREATE INDEX IF NOT EXISTS idx_exchanges_source
    ON exchanges (source);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Append persists a single exchange.
func (s *SQLiteStore) Append(ctx context.Context, e Exchange) error {
	const q = `INSERT INTO exchanges (query, source, confidence, latency_ms, created_at) VALUES (?, ?, ?, ?, ?)`
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	if _, err := s.db.ExecContext(ctx, q,
		e.Query, e.Source, e.Confidence, e.Latency.Milliseconds(), createdAt.Unix(),
	); err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// Recent returns the most recent n exchanges, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Exchange, error) {
	const q = `
SELECT query, source, confidence, latency_ms, created_at
FROM   exchanges
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var e Exchange
		var latencyMS, ts int64
		if err := rows.Scan(&e.Query, &e.Source, &e.Confidence, &latencyMS, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		e.Latency = time.Duration(latencyMS) * time.Millisecond
		e.CreatedAt = time.Unix(ts, 0)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return out, nil
}

// Stats returns per-source aggregates, most used source first.
func (s *SQLiteStore) Stats(ctx context.Context) ([]SourceStat, error) {
	const q = `
SELECT source, COUNT(*), AVG(confidence)
FROM   exchanges
GROUP  BY source
ORDER  BY COUNT(*) DESC, source ASC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: stats: %w", err)
	}
	defer rows.Close()

	var out []SourceStat
	for rows.Next() {
		var st SourceStat
		if err := rows.Scan(&st.Source, &st.Count, &st.MeanConfidence); err != nil {
			return nil, fmt.Errorf("store: stats scan: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: stats rows: %w", err)
	}
	return out, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
