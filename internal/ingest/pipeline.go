// Package ingest drives uploaded files through the Extract → Summarize →
// Persist pipeline, tracking a per-file state machine and surfacing
// progress for UI feedback.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/ai"
	"github.com/starford/ansuz/internal/extract"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/store"
)

// Status is the per-file ingestion state. Success and Error are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Upload is the raw ingestion input: a file handle's metadata plus its body.
type Upload struct {
	Name       string
	MediaType  string
	Size       int64
	ModifiedAt time.Time
	Data       []byte
}

// Item tracks one upload through the pipeline. Progress is a 0–100
// indicator that increases monotonically during Processing; it is UI
// feedback only and is not tied to byte counts.
type Item struct {
	ID       string
	Upload   Upload
	Status   Status
	Progress int
	Err      string

	// File is populated once the item reaches Success.
	File *models.SourceFile
}

// Notifier receives a snapshot of an item after every status or progress
// change.
type Notifier func(item Item)

// Pipeline processes upload batches strictly sequentially, one file at a
// time, in upload order. Sequential processing keeps progress reporting
// predictable and avoids concurrent writes to the chat transcript tier.
// A failed file is never retried automatically; it takes a new upload.
type Pipeline struct {
	extractor *extract.Registry
	ai        *ai.Client
	store     store.Store
	notify    Notifier
	stepDelay time.Duration
	logger    *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithNotifier sets the progress callback.
func WithNotifier(n Notifier) PipelineOption {
	return func(p *Pipeline) { p.notify = n }
}

// WithStepDelay sets the artificial delay between simulated progress
// steps. Zero (the test default) disables the simulation delay.
func WithStepDelay(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.stepDelay = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates an ingestion pipeline over the given collaborators.
func NewPipeline(extractor *extract.Registry, client *ai.Client, st store.Store, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		ai:        client,
		store:     st,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes the batch sequentially and returns every item in upload
// order, each in a terminal state.
func (p *Pipeline) Run(ctx context.Context, uploads []Upload) []Item {
	items := make([]Item, len(uploads))
	for i, up := range uploads {
		items[i] = Item{
			ID:     uuid.New().String(),
			Upload: up,
			Status: StatusPending,
		}
		p.emit(items[i])
	}
	for i := range items {
		p.process(ctx, &items[i])
	}
	return items
}

// process runs one item through Extract → Summarize. Extraction failure
// (or an escaped panic) terminates it in Error with the message captured
// verbatim; summarization never fails the step by contract.
func (p *Pipeline) process(ctx context.Context, item *Item) {
	defer func() {
		if r := recover(); r != nil {
			item.Status = StatusError
			item.Err = fmt.Sprintf("unexpected failure: %v", r)
			p.emit(*item)
		}
	}()

	item.Status = StatusProcessing
	p.setProgress(item, 10)

	text, err := p.extractor.Extract(item.Upload.Name, item.Upload.MediaType, item.Upload.Data)
	if err != nil {
		item.Status = StatusError
		item.Err = err.Error()
		p.emit(*item)
		p.logger.Warn("ingest: extraction failed",
			slog.String("file", item.Upload.Name), slog.String("error", err.Error()))
		return
	}
	p.setProgress(item, 45)

	summary := p.ai.Summarize(ctx, item.Upload.Name, text)
	summary.SourceID = item.ID
	p.setProgress(item, 85)

	item.File = &models.SourceFile{
		ID:         item.ID,
		Name:       item.Upload.Name,
		MediaType:  item.Upload.MediaType,
		Size:       item.Upload.Size,
		ModifiedAt: item.Upload.ModifiedAt,
		Content:    text,
		Summary:    summary,
	}
	item.Status = StatusSuccess
	p.setProgress(item, 100)
	p.logger.Info("ingest: file processed",
		slog.String("file", item.Upload.Name), slog.String("id", item.ID))
}

// Commit persists the batch's Success items to the notebook and returns
// the saved files. Error and Pending items are discarded, not retried.
func (p *Pipeline) Commit(items []Item, notebookID string) ([]models.SourceFile, error) {
	var saved []models.SourceFile
	for _, item := range items {
		if item.Status != StatusSuccess || item.File == nil {
			continue
		}
		if err := p.store.SaveFile(item.File, notebookID); err != nil {
			return saved, fmt.Errorf("ingest: commit %s: %w", item.Upload.Name, err)
		}
		saved = append(saved, *item.File)
	}
	return saved, nil
}

// IngestAndCommit runs the batch and commits the successful subset in
// one call. The returned items still describe the whole batch, including
// failures for per-file error display.
func (p *Pipeline) IngestAndCommit(ctx context.Context, notebookID string, uploads []Upload) ([]Item, error) {
	items := p.Run(ctx, uploads)
	if _, err := p.Commit(items, notebookID); err != nil {
		return items, err
	}
	return items, nil
}

func (p *Pipeline) setProgress(item *Item, pct int) {
	if pct > item.Progress {
		item.Progress = pct
	}
	p.emit(*item)
	if p.stepDelay > 0 && item.Status == StatusProcessing {
		time.Sleep(p.stepDelay)
	}
}

func (p *Pipeline) emit(item Item) {
	if p.notify != nil {
		p.notify(item)
	}
}
