//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses a LIKE fallback on the files table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error {
	// Content is already stored in the files table; nothing extra to do.
	return nil
}

func ftsDeleteByNotebook(_ *sql.Tx, _ string) {}

func ftsClear(_ *sql.DB) {}

// SearchFiles performs a LIKE-based search (fallback when FTS5 is not
// compiled in).
func (s *Local) SearchFiles(query string, limit int) ([]FileMatch, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := s.conn.Query(`
		SELECT id, name, substr(content, 1, 200)
		FROM files
		WHERE name LIKE ? OR content LIKE ?
		LIMIT ?
	`, like, like, limit)
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
