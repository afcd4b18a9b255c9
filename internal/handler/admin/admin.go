// Package admin holds the handlers mounted under /api/admin. Every route
// requires auth.RequireAdmin.
package admin

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/streamteamhq/platform/internal/domain"
)

// pathID parses the {id} URL parameter as a positive integer.
func pathID(r *http.Request, entity string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrValidation("invalid " + entity + " id")
	}
	return id, nil
}
