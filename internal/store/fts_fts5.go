//go:build sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
			id UNINDEXED,
			name,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, name, content string) error {
	_, _ = tx.Exec(`DELETE FROM files_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO files_fts (id, name, content) VALUES (?, ?, ?)`, id, name, content)
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

func ftsDeleteByNotebook(tx *sql.Tx, notebookID string) {
	_, _ = tx.Exec(`
		DELETE FROM files_fts WHERE id IN (SELECT id FROM files WHERE notebook_id = ?)
	`, notebookID)
}

func ftsClear(conn *sql.DB) {
	_, _ = conn.Exec(`DELETE FROM files_fts`)
}

// SearchFiles performs an FTS5 full-text search over source file names
// and extracted content, returning matches with snippets.
func (s *Local) SearchFiles(query string, limit int) ([]FileMatch, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.Query(`
		SELECT id,
		       name,
		       snippet(files_fts, 2, '<b>', '</b>', '...', 64)
		FROM files_fts
		WHERE files_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var out []FileMatch
	for rows.Next() {
		var m FileMatch
		if err := rows.Scan(&m.ID, &m.Name, &m.Snippet); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
