package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notebooks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	tags        TEXT NOT NULL DEFAULT '[]',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notebooks_created ON notebooks(created_at);

CREATE TABLE IF NOT EXISTS files (
	id          TEXT PRIMARY KEY,
	notebook_id TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL DEFAULT '',
	media_type  TEXT NOT NULL DEFAULT '',
	size        INTEGER NOT NULL DEFAULT 0,
	modified_at DATETIME NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	summary     TEXT,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_notebook ON files(notebook_id);
`

// Local implements Store over the two tiers: a SQLite record store for
// notebooks and source files, and a KV blob store for chat transcripts
// and settings. Both tiers are owned exclusively by this object; all
// mutation goes through its methods.
type Local struct {
	conn *sql.DB
	kv   *KV

	// chatMu serializes the read-modify-write of chat transcripts.
	// The chat list is stored as one whole-value blob per notebook, so
	// concurrent appends from two goroutines would otherwise lose
	// updates. A single daemon process is the assumed sole writer.
	chatMu sync.Mutex
}

// Open opens (or creates) the SQLite database, applies the schema, and
// attaches the Tier A data directory.
func Open(dsn, dataDir string) (*Local, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	kv, err := NewKV(dataDir)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Local{conn: conn, kv: kv}, nil
}

// ClearAllData wipes both tiers entirely. Used only for full reset.
func (s *Local) ClearAllData() error {
	if _, err := s.conn.Exec(`DELETE FROM files`); err != nil {
		return fmt.Errorf("store: clear files: %w", err)
	}
	if _, err := s.conn.Exec(`DELETE FROM notebooks`); err != nil {
		return fmt.Errorf("store: clear notebooks: %w", err)
	}
	ftsClear(s.conn)
	return s.kv.Wipe()
}

// Close closes the underlying database connection.
func (s *Local) Close() error {
	return s.conn.Close()
}
