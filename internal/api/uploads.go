package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/ingest"
)

const maxUploadBytes = 50 << 20 // 50 MB per request

// uploadItem is the per-file outcome of an upload batch.
type uploadItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

// Upload handles POST /api/notebooks/{id}/sources
// (multipart/form-data, repeated field "files").
//
// The whole batch is ingested sequentially; only files reaching Success
// are committed to the notebook. Failed files are reported per item and
// discarded — re-uploading is the retry path.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetNotebook(id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'files' field in multipart form"))
		return
	}

	uploads := make([]ingest.Upload, 0, len(headers))
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("failed to open uploaded file"))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("failed to read uploaded file"))
			return
		}
		uploads = append(uploads, ingest.Upload{
			Name:      hdr.Filename,
			MediaType: hdr.Header.Get("Content-Type"),
			Size:      hdr.Size,
			Data:      data,
		})
	}

	items, err := h.pipeline.IngestAndCommit(r.Context(), id, uploads)
	if err != nil {
		slog.Error("upload commit failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to persist ingested files"))
		return
	}
	h.notifyNotebook("updated", id)

	out := make([]uploadItem, len(items))
	for i, item := range items {
		out[i] = uploadItem{
			ID:       item.ID,
			Name:     item.Upload.Name,
			Status:   string(item.Status),
			Progress: item.Progress,
			Error:    item.Err,
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"files": out})
}
