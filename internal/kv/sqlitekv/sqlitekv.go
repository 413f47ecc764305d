// Package sqlitekv implements kv.Substrate on a SQLite file.
//
// Each collection is a table with an INTEGER PRIMARY KEY AUTOINCREMENT key
// and a BLOB value, so generated keys are never reused after deletes. The
// schema version lives in PRAGMA user_version and the database name in a
// one-row kv_database table.
//
// The connection is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/taleweaver/internal/kv"
)

// Substrate is a SQLite-backed kv.Substrate.
type Substrate struct {
	db *sql.DB

	mu     sync.Mutex
	opened bool
	closed bool
}

// Open creates or opens a SQLite database at path. ":memory:" gives a
// private in-memory database.
func Open(path string) (*Substrate, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	// A single connection also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Substrate{db: db}, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Substrate methods when available.
func (s *Substrate) DB() *sql.DB {
	return s.db
}

// Open implements kv.Substrate. The schema change runs in one transaction:
// either the upgrade and the version bump both land or neither does.
func (s *Substrate) Open(ctx context.Context, name string, version int, upgrade kv.UpgradeFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("open %s: begin tx: %w", name, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := claimName(ctx, tx, name); err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}

	var stored int
	if err := tx.QueryRowContext(ctx, "PRAGMA user_version").Scan(&stored); err != nil {
		return fmt.Errorf("open %s: get user_version: %w", name, err)
	}

	needsUpgrade, err := kv.CheckVersion(stored, version)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}

	if needsUpgrade {
		if upgrade != nil {
			if err := upgrade(ctx, &upgradeTx{tx: tx}, stored, version); err != nil {
				return fmt.Errorf("open %s: upgrade %d -> %d: %w", name, stored, version, err)
			}
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			return fmt.Errorf("open %s: set user_version: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("open %s: commit: %w", name, err)
	}

	s.mu.Lock()
	s.opened = true
	s.mu.Unlock()
	return nil
}

// claimName records the database name on first open and rejects a file
// that already belongs to another database.
func claimName(ctx context.Context, tx *sql.Tx, name string) error {
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv_database (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			name TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create kv_database: %w", err)
	}

	var existing string
	err := tx.QueryRowContext(ctx, "SELECT name FROM kv_database WHERE id = 1").Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, "INSERT INTO kv_database (id, name) VALUES (1, ?)", name); err != nil {
			return fmt.Errorf("record name: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read name: %w", err)
	case existing != name:
		return fmt.Errorf("file holds database %q, not %q", existing, name)
	}
	return nil
}

// Add implements kv.Substrate.
func (s *Substrate) Add(ctx context.Context, collection string, key *int64, value []byte) (int64, error) {
	table, err := s.table(collection)
	if err != nil {
		return 0, err
	}

	if value == nil {
		value = []byte{} // nil binds as NULL
	}

	var result sql.Result
	if key == nil {
		result, err = s.db.ExecContext(ctx, `INSERT INTO `+table+` (value) VALUES (?)`, value)
	} else {
		result, err = s.db.ExecContext(ctx, `INSERT INTO `+table+` (key, value) VALUES (?, ?)`, *key, value)
	}
	if err != nil {
		return 0, fmt.Errorf("add to %s: %w", collection, classify(err, collection))
	}

	if key != nil {
		return *key, nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add to %s: last insert id: %w", collection, err)
	}
	return id, nil
}

// GetAll implements kv.Substrate.
func (s *Substrate) GetAll(ctx context.Context, collection string) ([]kv.Entry, error) {
	table, err := s.table(collection)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM `+table+` ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, classify(err, collection))
	}
	defer rows.Close()

	entries := []kv.Entry{}
	for rows.Next() {
		var e kv.Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}

	return entries, nil
}

// Delete implements kv.Substrate.
func (s *Substrate) Delete(ctx context.Context, collection string, key int64) error {
	table, err := s.table(collection)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete from %s: %w", collection, classify(err, collection))
	}
	return nil
}

// Count implements kv.Substrate.
func (s *Substrate) Count(ctx context.Context, collection string) (int, error) {
	table, err := s.table(collection)
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, classify(err, collection))
	}
	return n, nil
}

// Close closes the database connection. Safe to call more than once.
func (s *Substrate) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil || s.closed {
		return nil
	}
	s.closed = true
	s.opened = false
	return s.db.Close()
}

// table validates the collection name and returns it quoted for SQL.
func (s *Substrate) table(collection string) (string, error) {
	s.mu.Lock()
	opened := s.opened
	s.mu.Unlock()
	if !opened {
		return "", kv.ErrNotOpen
	}
	if err := kv.ValidateCollectionName(collection); err != nil {
		return "", err
	}
	return `"` + collection + `"`, nil
}

// classify maps driver errors onto kv sentinel errors.
func classify(err error, collection string) error {
	var se sqlite3.Error
	if errors.As(err, &se) {
		if se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %v", kv.ErrKeyExists, err)
		}
		if se.Code == sqlite3.ErrError && strings.Contains(se.Error(), "no such table") {
			return fmt.Errorf("%w: %s", kv.ErrNoCollection, collection)
		}
	}
	return err
}

type upgradeTx struct {
	tx *sql.Tx
}

func (u *upgradeTx) HasCollection(ctx context.Context, name string) (bool, error) {
	var count int
	err := u.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", name, err)
	}
	return count > 0, nil
}

func (u *upgradeTx) CreateCollection(ctx context.Context, name string) error {
	if err := kv.ValidateCollectionName(name); err != nil {
		return err
	}
	_, err := u.tx.ExecContext(ctx, `
		CREATE TABLE "`+name+`" (
			key INTEGER PRIMARY KEY AUTOINCREMENT,
			value BLOB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}
