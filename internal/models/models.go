// Package models defines the domain types for Ansuz.
package models

import "time"

// Notebook is the root aggregate: a user-facing container for ingested
// documents and their chat transcript.
type Notebook struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// SourceIDs is materialized by joining against the files table at read
	// time; it is never stored on the notebook row itself.
	SourceIDs []string `json:"source_ids,omitempty"`
}

// SourceFile is one ingested document: extracted text plus metadata and
// its AI summary. NotebookID is stamped when the file is saved.
type SourceFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MediaType  string    `json:"media_type"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	Content    string    `json:"content"`
	Summary    *Summary  `json:"summary,omitempty"`
	NotebookID string    `json:"notebook_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Summary.Source values, recorded so callers can tell a high-confidence
// model response from a heuristic or synthesized one.
const (
	SummarySourceModel     = "model"     // strict structured parse of the model response
	SummarySourceHeuristic = "heuristic" // line-based fallback extraction
	SummarySourceShort     = "short"     // content below the summarization threshold
	SummarySourceFallback  = "fallback"  // synthesized after a remote-call failure
)

// Summary is the structured AI digest of a SourceFile. It is always
// present once ingestion reaches a terminal state for the file: on any
// extraction or model failure a fallback Summary is synthesized instead
// of leaving the field absent.
type Summary struct {
	SourceID       string   `json:"source_id"`
	FileName       string   `json:"file_name"`
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"key_points"`
	EstimatedWords int      `json:"estimated_words"`
	Language       string   `json:"language"`
	Source         string   `json:"source"`
}

// ChatMessage is one turn in a notebook's transcript. Messages are
// append-only and immutable once written; within a notebook they are
// strictly ordered by CreatedAt.
type ChatMessage struct {
	ID         string    `json:"id"`
	NotebookID string    `json:"notebook_id"`
	Content    string    `json:"content"`
	FromUser   bool      `json:"from_user"`
	CreatedAt  time.Time `json:"created_at"`
	SourceIDs  []string  `json:"source_ids,omitempty"`
}

// Settings is the free-form per-installation settings blob.
type Settings map[string]any
