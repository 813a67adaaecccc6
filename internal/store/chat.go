package store

import (
	"errors"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/models"
)

const settingsKey = "settings.json"

func chatKey(notebookID string) string {
	return "chats/" + notebookID + ".json"
}

// GetChat returns the notebook's transcript in append order. A notebook
// with no messages yet yields an empty slice.
func (s *Local) GetChat(notebookID string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	if err := s.kv.Get(chatKey(notebookID), &msgs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.ChatMessage{}, nil
		}
		return nil, err
	}
	return msgs, nil
}

// SaveChat replaces the notebook's transcript wholesale.
func (s *Local) SaveChat(notebookID string, msgs []models.ChatMessage) error {
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	return s.kv.Put(chatKey(notebookID), msgs)
}

// AddChatMessage appends a newly stamped message to the notebook's
// transcript: read the current list, append, write the whole value back.
// chatMu serializes the read-modify-write; this process is the assumed
// sole writer of the data directory.
func (s *Local) AddChatMessage(notebookID, content string, fromUser bool, sourceIDs []string) (*models.ChatMessage, error) {
	s.chatMu.Lock()
	defer s.chatMu.Unlock()

	msgs, err := s.GetChat(notebookID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	// Keep timestamps strictly increasing within a notebook even when
	// two appends land in the same clock tick.
	if n := len(msgs); n > 0 && !now.After(msgs[n-1].CreatedAt) {
		now = msgs[n-1].CreatedAt.Add(time.Nanosecond)
	}

	msg := models.ChatMessage{
		ID:         uuid.New().String(),
		NotebookID: notebookID,
		Content:    content,
		FromUser:   fromUser,
		CreatedAt:  now,
		SourceIDs:  sourceIDs,
	}
	msgs = append(msgs, msg)

	if err := s.kv.Put(chatKey(notebookID), msgs); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetSettings returns the settings blob, empty when none has been saved.
func (s *Local) GetSettings() (models.Settings, error) {
	var out models.Settings
	if err := s.kv.Get(settingsKey, &out); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Settings{}, nil
		}
		return nil, err
	}
	return out, nil
}

// SaveSettings replaces the settings blob wholesale.
func (s *Local) SaveSettings(v models.Settings) error {
	if v == nil {
		v = models.Settings{}
	}
	return s.kv.Put(settingsKey, v)
}
