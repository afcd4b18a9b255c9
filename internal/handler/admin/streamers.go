package admin

import (
	"log/slog"
	"net/http"

	"github.com/streamteamhq/platform/internal/auth"
	"github.com/streamteamhq/platform/internal/handler"
	"github.com/streamteamhq/platform/internal/service"
)

// StreamerAdminHandler lists streamers and manages the admin flag.
type StreamerAdminHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewStreamerAdminHandler creates a new StreamerAdminHandler.
func NewStreamerAdminHandler(catalog *service.CatalogService, logger *slog.Logger) *StreamerAdminHandler {
	return &StreamerAdminHandler{catalog: catalog, logger: logger}
}

// ListStreamers handles GET /api/admin/streamers.
func (h *StreamerAdminHandler) ListStreamers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.catalog.ListStreamers(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, rows)
}

// ToggleAdmin handles POST /api/admin/streamers/{id}/toggle-admin.
func (h *StreamerAdminHandler) ToggleAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "streamer")
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	actor := auth.IdentityFromContext(r.Context())
	val, err := h.catalog.ToggleAdmin(r.Context(), actor, id)
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	h.logger.Info("admin flag changed", "streamer_id", id, "is_admin", val, "by", actor)
	handler.RespondJSON(w, http.StatusOK, handler.OK("is_admin", val))
}
