package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notebooks CRUD.
	r.Get("/notebooks", h.ListNotebooks)
	r.Post("/notebooks", h.CreateNotebook)
	r.Get("/notebooks/{id}", h.GetNotebook)
	r.Patch("/notebooks/{id}", h.UpdateNotebook)
	r.Delete("/notebooks/{id}", h.DeleteNotebook)

	// Sources.
	r.Get("/notebooks/{id}/sources", h.ListSources)
	r.Post("/notebooks/{id}/sources", h.Upload)
	r.Get("/sources/{id}", h.GetSource)

	// Search.
	r.Get("/search", h.Search)

	// Chat.
	r.Get("/notebooks/{id}/chat", h.GetChat)
	r.Post("/notebooks/{id}/chat", h.Ask)

	// Settings and admin.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)
	r.Post("/admin/reset", h.Reset)

	// Live events.
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
