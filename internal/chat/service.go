// Package chat orchestrates notebook conversations: it persists user
// turns, assembles source and history context for the completion
// service, and persists the assistant's reply.
package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/ansuz/internal/ai"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/store"
)

// Service coordinates the store and the AI client for chat.
type Service struct {
	store  store.Store
	ai     *ai.Client
	logger *slog.Logger
}

// NewService creates a chat service.
func NewService(st store.Store, client *ai.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, ai: client, logger: logger}
}

// History returns the notebook's transcript in append order.
func (s *Service) History(_ context.Context, notebookID string) ([]models.ChatMessage, error) {
	if _, err := s.store.GetNotebook(notebookID); err != nil {
		return nil, err
	}
	return s.store.GetChat(notebookID)
}

// Ask appends the user's query to the transcript, answers it from the
// selected sources (all of the notebook's sources when none are
// selected), and appends the assistant's reply. The AI call never fails
// by contract, so both turns are always persisted: a remote failure
// still yields a valid apologetic assistant message, never a transcript
// with an unanswered question.
func (s *Service) Ask(ctx context.Context, notebookID, query string, sourceIDs []string) (*models.ChatMessage, error) {
	if _, err := s.store.GetNotebook(notebookID); err != nil {
		return nil, err
	}

	files, err := s.store.GetFilesByNotebook(notebookID)
	if err != nil {
		return nil, fmt.Errorf("chat: load sources: %w", err)
	}
	selected := selectSources(files, sourceIDs)

	// History is captured before the user turn is appended; the query
	// itself travels separately in the request.
	history, err := s.store.GetChat(notebookID)
	if err != nil {
		return nil, fmt.Errorf("chat: load history: %w", err)
	}

	if _, err := s.store.AddChatMessage(notebookID, query, true, sourceIDs); err != nil {
		return nil, fmt.Errorf("chat: append user turn: %w", err)
	}

	result := s.ai.Chat(ctx, query, selected, history)

	answer, err := s.store.AddChatMessage(notebookID, result.Content, false,
		sourceIDsByName(selected, result.ReferencedSourceNames))
	if err != nil {
		return nil, fmt.Errorf("chat: append assistant turn: %w", err)
	}

	s.logger.Debug("chat: answered",
		slog.String("notebook", notebookID),
		slog.Int("sources", len(selected)),
		slog.Float64("confidence", result.Confidence))
	return answer, nil
}

// selectSources filters the notebook's files to the caller-selected ids;
// an empty selection means every source.
func selectSources(files []models.SourceFile, sourceIDs []string) []models.SourceFile {
	if len(sourceIDs) == 0 {
		return files
	}
	wanted := make(map[string]struct{}, len(sourceIDs))
	for _, id := range sourceIDs {
		wanted[id] = struct{}{}
	}
	var out []models.SourceFile
	for _, f := range files {
		if _, ok := wanted[f.ID]; ok {
			out = append(out, f)
		}
	}
	return out
}

// sourceIDsByName translates the referenced source names from the AI
// response back to file ids where they match.
func sourceIDsByName(files []models.SourceFile, names []string) []string {
	ids := []string{}
	for _, name := range names {
		for _, f := range files {
			if f.Name == name {
				ids = append(ids, f.ID)
				break
			}
		}
	}
	return ids
}
