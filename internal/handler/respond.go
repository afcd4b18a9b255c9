package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/streamteamhq/platform/internal/domain"
)

// maxBodyBytes caps request bodies accepted by DecodeJSON.
const maxBodyBytes = 1 << 20

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// RespondError writes a JSON error response, detecting domain.AppError for status codes.
// Only the code and message are rendered; 500s always carry the generic message.
func RespondError(w http.ResponseWriter, err error) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) && appErr.Status != http.StatusInternalServerError {
		RespondJSON(w, appErr.Status, map[string]string{
			"code":  appErr.Code,
			"error": appErr.Message,
		})
		return
	}
	RespondJSON(w, http.StatusInternalServerError, map[string]string{
		"code":  "INTERNAL_ERROR",
		"error": "internal server error",
	})
}

// DecodeJSON reads and decodes a JSON request body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(dst)
}

// RespondBadBody writes the standard response for an undecodable body.
func RespondBadBody(w http.ResponseWriter) {
	RespondError(w, domain.ErrValidation("invalid request body"))
}

// Success is the envelope returned by mutating endpoints.
type Success map[string]interface{}

// OK returns a Success with success=true plus the given key/value pairs.
func OK(kv ...interface{}) Success {
	s := Success{"success": true}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			s[k] = kv[i+1]
		}
	}
	return s
}
