package admin

import (
	"net/http"

	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/handler"
	"github.com/streamteamhq/platform/internal/service"
)

// QuestAdminHandler handles admin quest management.
type QuestAdminHandler struct {
	catalog *service.CatalogService
}

// NewQuestAdminHandler creates a new QuestAdminHandler.
func NewQuestAdminHandler(catalog *service.CatalogService) *QuestAdminHandler {
	return &QuestAdminHandler{catalog: catalog}
}

// ListQuests handles GET /api/admin/quests.
func (h *QuestAdminHandler) ListQuests(w http.ResponseWriter, r *http.Request) {
	quests, err := h.catalog.ListQuests(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	if quests == nil {
		quests = []domain.Quest{}
	}
	handler.RespondJSON(w, http.StatusOK, quests)
}

// CreateQuest handles POST /api/admin/quests.
func (h *QuestAdminHandler) CreateQuest(w http.ResponseWriter, r *http.Request) {
	var input domain.QuestInput
	if err := handler.DecodeJSON(r, &input); err != nil {
		handler.RespondBadBody(w)
		return
	}

	id, err := h.catalog.CreateQuest(r.Context(), input)
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusCreated, handler.OK("questId", id))
}

// UpdateQuest handles PUT /api/admin/quests/{id}.
func (h *QuestAdminHandler) UpdateQuest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "quest")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	var input domain.QuestInput
	if err := handler.DecodeJSON(r, &input); err != nil {
		handler.RespondBadBody(w)
		return
	}

	if err := h.catalog.UpdateQuest(r.Context(), id, input); err != nil {
		handler.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, handler.OK("message", "Quest updated"))
}

// DeleteQuest handles DELETE /api/admin/quests/{id}.
func (h *QuestAdminHandler) DeleteQuest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "quest")
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	if err := h.catalog.DeleteQuest(r.Context(), id); err != nil {
		handler.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, handler.OK("message", "Quest deleted"))
}
