// Package store keeps local operator state in sqlite: the operation journal,
// transaction receipts, API registrations and bets, and the leaderboard.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DBFile is the database file name under the data directory.
const DBFile = "clawroyale.db"

var ErrNotInitialized = errors.New("store not initialized")

// Store wraps the sqlite handle. All methods are safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database under dataDir, creating the
// directory when missing.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return OpenDSN(filepath.Join(dataDir, DBFile))
}

// OpenDSN opens (or creates) a database using the given sqlite DSN/path.
// Tests may pass ":memory:" to avoid touching disk.
func OpenDSN(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, now: time.Now}
	if err := s.seedLeaderboard(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []struct{ name, sql string }{
		{"operations", `
CREATE TABLE IF NOT EXISTS operations (
	id TEXT PRIMARY KEY,
	op TEXT NOT NULL,
	chain TEXT NOT NULL,
	from_addr TEXT NOT NULL,
	args TEXT,
	status TEXT NOT NULL,
	error TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);`},
		{"steps", `
CREATE TABLE IF NOT EXISTS steps (
	op_id TEXT NOT NULL,
	step TEXT NOT NULL,
	status TEXT NOT NULL,
	tx_hash TEXT,
	gas_used INTEGER,
	error TEXT,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (op_id, step)
);`},
		{"receipts", `
CREATE TABLE IF NOT EXISTS receipts (
	chain TEXT NOT NULL,
	tx_hash TEXT NOT NULL,
	status INTEGER,
	gas_used INTEGER,
	block_number INTEGER,
	raw_json TEXT,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (chain, tx_hash)
);`},
		{"registrations", `
CREATE TABLE IF NOT EXISTS registrations (
	agent_id TEXT PRIMARY KEY,
	agent_name TEXT NOT NULL,
	signature TEXT,
	status TEXT NOT NULL,
	battle_id TEXT,
	registered_at TEXT NOT NULL
);`},
		{"bets", `
CREATE TABLE IF NOT EXISTS bets (
	id TEXT PRIMARY KEY,
	battle_id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	amount_usdc REAL NOT NULL,
	tx_hash TEXT,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL
);`},
		{"leaderboard", `
CREATE TABLE IF NOT EXISTS leaderboard (
	name TEXT PRIMARY KEY,
	wins INTEGER NOT NULL,
	address TEXT NOT NULL,
	streak INTEGER NOT NULL
);`},
	}
	for _, st := range stmts {
		if _, err := db.Exec(st.sql); err != nil {
			return fmt.Errorf("create %s table: %w", st.name, err)
		}
	}
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}
	return nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}
