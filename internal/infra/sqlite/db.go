// Package sqlite persists the rewards ledger and its surrounding state.
// All mutations flow through WithTx so every operation commits atomically;
// read paths query the live connection directly.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	db *sql.DB
}

// Open creates (if needed) and opens the database under dataDir, applying
// pending migrations. Transactions take the write lock up front (immediate
// mode) so conflicting writers queue on busy_timeout instead of failing at
// commit.
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	path := filepath.Join(dataDir, "lunamall.db")
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)

	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids lock churn.
	sdb.SetMaxOpenConns(1)

	db := &DB{db: sdb}
	if err := db.migrate(); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) migrate() error {
	for i, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// ─── Transactions ───────────────────────────────────────────────────────────

// Tx exposes the mutation surface of the store. Every method runs inside the
// transaction that produced it; returning an error from the WithTx callback
// rolls everything back.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a single transaction, committing only when fn
// returns nil.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(&Tx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ─── Time Encoding ──────────────────────────────────────────────────────────
// Timestamps are stored as RFC 3339 text in UTC with a fixed-width nanosecond
// fraction so that lexicographic SQL comparisons order chronologically.
// Zero times map to NULL.

const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	// RFC3339Nano accepts both the fixed-width form and older trimmed values.
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
