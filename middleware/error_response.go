package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Ceasar-x/sschool/models"
)

// ErrorResponseBody is the error envelope for every API failure.
type ErrorResponseBody struct {
	Error string `json:"error"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", slog.String("error", err.Error()))
	}
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation, models.KindInvalidID:
		return http.StatusBadRequest
	case models.KindUnauthenticated, models.KindUnauthorized:
		return http.StatusUnauthorized
	case models.KindForbidden:
		return http.StatusForbidden
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as {"error": msg}. Errors that are not an
// *models.APIError are reported as a generic 500 and never leak their text.
func WriteError(w http.ResponseWriter, err error) {
	apiErr, ok := models.AsAPIError(err)
	if !ok {
		apiErr = models.NewInternalError("Internal server error")
	}
	WriteJSON(w, StatusFor(apiErr.Kind), ErrorResponseBody{Error: apiErr.Message})
}
