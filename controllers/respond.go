package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"go-storefront/apperr"
)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps an error to its HTTP status and writes the error body.
// Core errors carry a machine-readable kind; anything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperr.AsError(err)
	if !ok {
		slog.Error("internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": map[string]string{"kind": "internal", "message": "internal server error"},
		})
		return
	}
	writeJSON(w, httpStatusForKind(appErr.Kind), map[string]interface{}{"error": appErr})
}

func httpStatusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindStock, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindInvalidTransition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
