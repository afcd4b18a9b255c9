package admin

import (
	"net/http"

	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/handler"
	"github.com/streamteamhq/platform/internal/service"
)

// NotificationAdminHandler publishes broadcast notifications.
type NotificationAdminHandler struct {
	feed *service.FeedService
}

// NewNotificationAdminHandler creates a new NotificationAdminHandler.
func NewNotificationAdminHandler(feed *service.FeedService) *NotificationAdminHandler {
	return &NotificationAdminHandler{feed: feed}
}

// Publish handles POST /api/admin/notifications.
func (h *NotificationAdminHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var input domain.NotificationInput
	if err := handler.DecodeJSON(r, &input); err != nil {
		handler.RespondBadBody(w)
		return
	}

	id, err := h.feed.Publish(r.Context(), input)
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusCreated, handler.OK("notificationId", id))
}
