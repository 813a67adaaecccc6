package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// SaveFile stamps the owning-notebook reference onto the record and
// persists it, bumping the notebook's UpdatedAt. Saving an existing id
// replaces the record.
func (s *Local) SaveFile(f *models.SourceFile, notebookID string) error {
	f.NotebookID = notebookID
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	var summaryJSON sql.NullString
	if f.Summary != nil {
		data, err := json.Marshal(f.Summary)
		if err != nil {
			return fmt.Errorf("store: encode summary: %w", err)
		}
		summaryJSON = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO files (id, notebook_id, name, media_type, size, modified_at, content, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			notebook_id = excluded.notebook_id,
			name        = excluded.name,
			media_type  = excluded.media_type,
			size        = excluded.size,
			modified_at = excluded.modified_at,
			content     = excluded.content,
			summary     = excluded.summary
	`, f.ID, f.NotebookID, f.Name, f.MediaType, f.Size, f.ModifiedAt, f.Content, summaryJSON, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: save file: %w", err)
	}

	if err := ftsUpsert(tx, f.ID, f.Name, f.Content); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit save file: %w", err)
	}

	return s.touchNotebook(notebookID)
}

// GetFile returns one source file by id.
func (s *Local) GetFile(id string) (*models.SourceFile, error) {
	row := s.conn.QueryRow(`
		SELECT id, notebook_id, name, media_type, size, modified_at, content, summary, created_at
		FROM files WHERE id = ?
	`, id)
	f, err := scanFile(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: get file: %w", err)
	}
	return f, nil
}

// GetFilesByNotebook returns every source file owned by the notebook via
// the notebook_id secondary index, in insertion order.
func (s *Local) GetFilesByNotebook(notebookID string) ([]models.SourceFile, error) {
	rows, err := s.conn.Query(`
		SELECT id, notebook_id, name, media_type, size, modified_at, content, summary, created_at
		FROM files WHERE notebook_id = ? ORDER BY created_at, id
	`, notebookID)
	if err != nil {
		return nil, fmt.Errorf("store: files by notebook: %w", err)
	}
	defer rows.Close()

	var out []models.SourceFile
	for rows.Next() {
		f, err := scanFile(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("store: scan file: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func scanFile(scan func(...any) error) (*models.SourceFile, error) {
	var f models.SourceFile
	var summaryJSON sql.NullString
	if err := scan(&f.ID, &f.NotebookID, &f.Name, &f.MediaType, &f.Size,
		&f.ModifiedAt, &f.Content, &summaryJSON, &f.CreatedAt); err != nil {
		return nil, err
	}
	if summaryJSON.Valid {
		var sum models.Summary
		if err := json.Unmarshal([]byte(summaryJSON.String), &sum); err == nil {
			f.Summary = &sum
		}
	}
	return &f, nil
}
