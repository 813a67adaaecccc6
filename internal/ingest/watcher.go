package ingest

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ansuz/internal/apperr"
)

// settleDelay debounces inbox events so a file is only picked up after
// writes to it have stopped.
const settleDelay = 500 * time.Millisecond

// Watch runs an fsnotify watcher on the inbox root until ctx is
// cancelled. Files dropped under <inbox>/<notebookID>/ are ingested
// through the pipeline, committed to that notebook, and removed from the
// inbox on success. Files for unknown notebooks are left in place.
//
// Notebook subdirectories created at runtime are added to the watch list
// automatically.
func Watch(ctx context.Context, p *Pipeline, inboxRoot string, logger *slog.Logger) error {
	if err := os.MkdirAll(inboxRoot, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, inboxRoot); err != nil {
		return err
	}

	logger.Info("inbox: watcher started", slog.String("root", inboxRoot))

	// Per-path settle timers debounce bursts of write events.
	timers := make(map[string]*time.Timer)
	readyCh := make(chan string, 16)

	for {
		select {
		case <-ctx.Done():
			for _, t := range timers {
				t.Stop()
			}
			logger.Info("inbox: watcher stopped")
			return nil

		case path := <-readyCh:
			delete(timers, path)
			ingestInboxFile(ctx, p, inboxRoot, path, logger)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("inbox: add new dir failed",
							slog.String("path", ev.Name), slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if info, statErr := os.Stat(ev.Name); statErr != nil || info.IsDir() {
				continue
			}

			// Reset the settle timer for this path.
			path := ev.Name
			if t, exists := timers[path]; exists {
				t.Reset(settleDelay)
			} else {
				timers[path] = time.AfterFunc(settleDelay, func() {
					readyCh <- path
				})
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// ingestInboxFile processes one settled inbox file. The file's parent
// directory name is the target notebook id.
func ingestInboxFile(ctx context.Context, p *Pipeline, inboxRoot, path string, logger *slog.Logger) {
	rel, err := filepath.Rel(inboxRoot, path)
	if err != nil {
		return
	}
	notebookID := filepath.Dir(rel)
	if notebookID == "." || filepath.Dir(notebookID) != "." {
		// Files at the inbox root or nested deeper than one level are
		// not addressed to a notebook.
		logger.Warn("inbox: file not under a notebook directory", slog.String("path", rel))
		return
	}

	if _, err := p.store.GetNotebook(notebookID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			logger.Warn("inbox: unknown notebook, leaving file in place",
				slog.String("notebook", notebookID), slog.String("path", rel))
		} else {
			logger.Error("inbox: notebook lookup failed", slog.String("error", err.Error()))
		}
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("inbox: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	up := Upload{
		Name:       filepath.Base(path),
		MediaType:  mime.TypeByExtension(filepath.Ext(path)),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
		Data:       data,
	}

	items, err := p.IngestAndCommit(ctx, notebookID, []Upload{up})
	if err != nil {
		logger.Error("inbox: commit failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if items[0].Status != StatusSuccess {
		logger.Warn("inbox: ingestion failed, leaving file in place",
			slog.String("path", rel), slog.String("error", items[0].Err))
		return
	}

	if err := os.Remove(path); err != nil {
		logger.Warn("inbox: cleanup failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
	logger.Info("inbox: file ingested",
		slog.String("notebook", notebookID), slog.String("file", up.Name))
}

// addDirsRecursive adds dir and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
