package admin

import (
	"net/http"

	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/handler"
	"github.com/streamteamhq/platform/internal/service"
)

// CardAdminHandler handles card management.
type CardAdminHandler struct {
	catalog *service.CatalogService
}

// NewCardAdminHandler creates a new CardAdminHandler.
func NewCardAdminHandler(catalog *service.CatalogService) *CardAdminHandler {
	return &CardAdminHandler{catalog: catalog}
}

// ListCards handles GET /api/admin/cards.
func (h *CardAdminHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.catalog.ListCards(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	if cards == nil {
		cards = []domain.Card{}
	}
	handler.RespondJSON(w, http.StatusOK, cards)
}

// CreateCard handles POST /api/admin/cards.
func (h *CardAdminHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var input domain.CardInput
	if err := handler.DecodeJSON(r, &input); err != nil {
		handler.RespondBadBody(w)
		return
	}

	id, err := h.catalog.CreateCard(r.Context(), input)
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusCreated, handler.OK("cardId", id))
}

// UpdateCard handles PUT /api/admin/cards/{id}.
func (h *CardAdminHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "card")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	var input domain.CardInput
	if err := handler.DecodeJSON(r, &input); err != nil {
		handler.RespondBadBody(w)
		return
	}

	if err := h.catalog.UpdateCard(r.Context(), id, input); err != nil {
		handler.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, handler.OK())
}

// DeleteCard handles DELETE /api/admin/cards/{id}.
func (h *CardAdminHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "card")
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	if err := h.catalog.DeleteCard(r.Context(), id); err != nil {
		handler.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, handler.OK())
}
