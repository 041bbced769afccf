package api

import (
	"encoding/json"
	"net/http"

	"github.com/commtype/api/pkg/validator"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondValidationError renders field-level messages alongside the flat
// error string the front-end displays.
func respondValidationError(w http.ResponseWriter, ve validator.ValidationErrors) {
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"error":  ve.Error(),
		"fields": ve.ToMap(),
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
