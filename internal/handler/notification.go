package handler

import (
	"net/http"

	"github.com/streamteamhq/platform/internal/auth"
	"github.com/streamteamhq/platform/internal/service"
)

// NotificationHandler serves the per-viewer notification feed.
type NotificationHandler struct {
	feed *service.FeedService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(feed *service.FeedService) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

// List handles GET /api/notifications. The session is optional.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.feed.List(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, items)
}

// MarkRead handles POST /api/notifications/mark-read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.feed.MarkAllRead(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, OK("marked", n))
}
