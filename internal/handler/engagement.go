package handler

import (
	"net/http"

	"github.com/streamteamhq/platform/internal/auth"
	"github.com/streamteamhq/platform/internal/service"
)

// EngagementHandler handles click, salve and stats endpoints.
type EngagementHandler struct {
	ledger *service.LedgerService
}

// NewEngagementHandler creates a new EngagementHandler.
func NewEngagementHandler(ledger *service.LedgerService) *EngagementHandler {
	return &EngagementHandler{ledger: ledger}
}

type loginInput struct {
	Login string `json:"login"`
}

// ProfileClick handles POST /api/profile-click.
func (h *EngagementHandler) ProfileClick(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondBadBody(w)
		return
	}

	if _, err := h.ledger.RecordProfileClick(r.Context(), input.Login); err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, OK())
}

// SendSalve handles POST /api/salve. Requires a session.
func (h *EngagementHandler) SendSalve(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondBadBody(w)
		return
	}

	res, err := h.ledger.SendSalve(r.Context(), auth.IdentityFromContext(r.Context()), input.Login)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, OK("message", res.Message, "receiver", res.Receiver))
}

// ProfileStats handles GET /api/profile-stats?login=.
func (h *EngagementHandler) ProfileStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.GetStats(r.Context(), r.URL.Query().Get("login"))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, stats)
}
