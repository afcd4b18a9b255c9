package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/streamteamhq/platform/internal/service"
)

// DirectoryHandler serves the public streamer directory.
type DirectoryHandler struct {
	dir *service.DirectoryService
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(dir *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{dir: dir}
}

// Recent handles GET /api/streamers.
func (h *DirectoryHandler) Recent(w http.ResponseWriter, r *http.Request) {
	rows, err := h.dir.Recent(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, rows)
}

// Search handles GET /api/search?q=.
func (h *DirectoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	rows, err := h.dir.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, rows)
}

// Profile handles GET /api/streamer/{login}.
func (h *DirectoryHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.dir.Profile(r.Context(), chi.URLParam(r, "login"))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, profile)
}

// Live handles GET /api/live.
func (h *DirectoryHandler) Live(w http.ResponseWriter, r *http.Request) {
	streams, err := h.dir.Live(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, streams)
}
