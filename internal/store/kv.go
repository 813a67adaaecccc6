package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KV is the flat keyed blob store (Tier A) backed by the local file
// system. Values are whole-document JSON blobs: reads and writes replace
// the entire value, and the last writer wins. It holds small records
// with no secondary lookup needs — chat transcripts and settings.
type KV struct {
	root string // absolute path to the data directory
}

// NewKV creates a KV store rooted at dir, creating it if needed.
func NewKV(dir string) (*KV, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("kv: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("kv: create root: %w", err)
	}
	return &KV{root: abs}, nil
}

// safePath resolves a key against the root and rejects any result that
// escapes it (directory traversal).
func (k *KV) safePath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("kv: empty key")
	}
	cleaned := filepath.Clean(key)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("kv: absolute keys not allowed: %s", key)
	}
	abs, err := filepath.Abs(filepath.Join(k.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("kv: resolve key: %w", err)
	}
	if !strings.HasPrefix(abs, k.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("kv: key escapes data root: %s", key)
	}
	return abs, nil
}

// Get unmarshals the value stored under key into out. A missing key
// returns os.ErrNotExist (wrapped) so callers can distinguish absence
// from a failing store.
func (k *KV) Get(key string, out any) error {
	abs, err := k.safePath(key)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("kv: read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return nil
}

// Put atomically replaces the value under key: tmp file → fsync → rename.
func (k *KV) Put(key string, v any) error {
	abs, err := k.safePath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("kv: mkdir: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".ansuz-tmp-*")
	if err != nil {
		return fmt.Errorf("kv: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("kv: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("kv: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("kv: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("kv: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes the value under key. Deleting a missing key is a no-op.
func (k *KV) Delete(key string) error {
	abs, err := k.safePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("kv: delete %s: %w", key, err)
	}
	return nil
}

// Wipe removes every value in the store, keeping the root directory.
func (k *KV) Wipe() error {
	entries, err := os.ReadDir(k.root)
	if err != nil {
		return fmt.Errorf("kv: wipe: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(k.root, e.Name())); err != nil {
			return fmt.Errorf("kv: wipe %s: %w", e.Name(), err)
		}
	}
	return nil
}
