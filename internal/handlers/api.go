package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"minesweep/internal/game"
)

// APIHandler exposes session snapshots as JSON plus a health probe.
type APIHandler struct {
	store   *game.Store
	started time.Time
}

func NewAPIHandler(store *game.Store) *APIHandler {
	return &APIHandler{store: store, started: time.Now()}
}

func (h *APIHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/game/{id}", h.snapshot)
	r.Get("/healthz", h.health)
}

func (h *APIHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.store.GetSession(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": game.ErrSessionNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *APIHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.store.Len(),
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}
