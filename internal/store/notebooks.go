package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// CreateNotebook allocates an id, stamps both timestamps, and persists a
// new empty notebook.
func (s *Local) CreateNotebook(title, description string) (*models.Notebook, error) {
	now := time.Now().UTC()
	nb := &models.Notebook{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Tags:        []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.conn.Exec(`
		INSERT INTO notebooks (id, title, description, tags, created_at, updated_at)
		VALUES (?, ?, ?, '[]', ?, ?)
	`, nb.ID, nb.Title, nb.Description, nb.CreatedAt, nb.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: create notebook: %w", err)
	}
	return nb, nil
}

// GetNotebook returns one notebook with its source ids materialized.
func (s *Local) GetNotebook(id string) (*models.Notebook, error) {
	row := s.conn.QueryRow(`
		SELECT id, title, description, tags, created_at, updated_at
		FROM notebooks WHERE id = ?
	`, id)
	nb, err := scanNotebook(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: get notebook: %w", err)
	}
	if err := s.attachSourceIDs(nb); err != nil {
		return nil, err
	}
	return nb, nil
}

// GetAllNotebooks lists every notebook, most recently updated first.
func (s *Local) GetAllNotebooks() ([]models.Notebook, error) {
	rows, err := s.conn.Query(`
		SELECT id, title, description, tags, created_at, updated_at
		FROM notebooks ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list notebooks: %w", err)
	}
	defer rows.Close()

	var out []models.Notebook
	for rows.Next() {
		nb, err := scanNotebook(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("store: scan notebook: %w", err)
		}
		if err := s.attachSourceIDs(nb); err != nil {
			return nil, err
		}
		out = append(out, *nb)
	}
	return out, rows.Err()
}

// UpdateNotebook persists title, description, and tags, always stamping
// UpdatedAt to now before writing.
func (s *Local) UpdateNotebook(nb *models.Notebook) error {
	nb.UpdatedAt = time.Now().UTC()
	tagsJSON, _ := json.Marshal(nonNilStrings(nb.Tags))
	res, err := s.conn.Exec(`
		UPDATE notebooks SET title = ?, description = ?, tags = ?, updated_at = ?
		WHERE id = ?
	`, nb.Title, nb.Description, string(tagsJSON), nb.UpdatedAt, nb.ID)
	if err != nil {
		return fmt.Errorf("store: update notebook: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteNotebook removes the notebook and cascades to its source files
// and chat transcript. The cascade runs as sequential single-record
// deletes (files in one tx, then the Tier A chat blob); a failure midway
// is safe to retry since each step is idempotent.
func (s *Local) DeleteNotebook(id string) error {
	var exists int
	if err := s.conn.QueryRow(`SELECT count(*) FROM notebooks WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("store: delete notebook: %w", err)
	}
	if exists == 0 {
		return apperr.ErrNotFound
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	ftsDeleteByNotebook(tx, id)
	if _, err := tx.Exec(`DELETE FROM files WHERE notebook_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete notebook files: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notebooks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete notebook: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit delete: %w", err)
	}

	return s.kv.Delete(chatKey(id))
}

// touchNotebook bumps UpdatedAt after a source-set change.
func (s *Local) touchNotebook(id string) error {
	_, err := s.conn.Exec(`UPDATE notebooks SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: touch notebook: %w", err)
	}
	return nil
}

func (s *Local) attachSourceIDs(nb *models.Notebook) error {
	rows, err := s.conn.Query(`SELECT id FROM files WHERE notebook_id = ? ORDER BY created_at, id`, nb.ID)
	if err != nil {
		return fmt.Errorf("store: notebook sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var fid string
		if err := rows.Scan(&fid); err != nil {
			return err
		}
		nb.SourceIDs = append(nb.SourceIDs, fid)
	}
	return rows.Err()
}

func scanNotebook(scan func(...any) error) (*models.Notebook, error) {
	var nb models.Notebook
	var tagsJSON string
	if err := scan(&nb.ID, &nb.Title, &nb.Description, &tagsJSON, &nb.CreatedAt, &nb.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &nb.Tags); err != nil {
		nb.Tags = []string{}
	}
	return &nb, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
