// Package store implements the two-tier persistence layer: a flat keyed
// filesystem store for chat transcripts and settings (Tier A) and a
// SQLite record store for notebooks and source files (Tier B).
package store

import "github.com/starford/ansuz/internal/models"

// FileMatch is one full-text search hit against source file content.
type FileMatch struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
}

// Store defines the persistence operations consumed by the orchestrators
// and API layer. Consumers should depend on this interface rather than
// the concrete *Local type to facilitate testing with mocks.
//
// Absence is reported as apperr.ErrNotFound (single reads) or an empty
// slice (lists); any other error means the store itself failed. The two
// are never conflated.
type Store interface {
	CreateNotebook(title, description string) (*models.Notebook, error)
	GetNotebook(id string) (*models.Notebook, error)
	GetAllNotebooks() ([]models.Notebook, error)
	UpdateNotebook(nb *models.Notebook) error
	DeleteNotebook(id string) error

	SaveFile(f *models.SourceFile, notebookID string) error
	GetFile(id string) (*models.SourceFile, error)
	GetFilesByNotebook(notebookID string) ([]models.SourceFile, error)
	SearchFiles(query string, limit int) ([]FileMatch, error)

	GetChat(notebookID string) ([]models.ChatMessage, error)
	SaveChat(notebookID string, msgs []models.ChatMessage) error
	AddChatMessage(notebookID, content string, fromUser bool, sourceIDs []string) (*models.ChatMessage, error)

	GetSettings() (models.Settings, error)
	SaveSettings(s models.Settings) error

	ClearAllData() error
	Close() error
}

// Verify *Local satisfies Store at compile time.
var _ Store = (*Local)(nil)
