package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Ceasar-x/sschool/middleware"
	"github.com/Ceasar-x/sschool/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxJSONBody = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	middleware.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, err error) {
	middleware.WriteError(w, err)
}

// writeInternal logs err under op and answers 500 with msg.
func writeInternal(w http.ResponseWriter, op string, err error, msg string) {
	slog.Error(op, slog.String("error", err.Error()))
	writeError(w, models.NewInternalError(msg))
}

// writeFailure answers with err's own kind when it carries one and with a
// logged 500 carrying fallback otherwise.
func writeFailure(w http.ResponseWriter, op string, err error, fallback string) {
	if _, ok := models.AsAPIError(err); ok {
		writeError(w, err)
		return
	}
	writeInternal(w, op, err, fallback)
}

// decodeJSON reads a JSON object into dst. An empty body decodes as {}.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return models.NewValidationError("Invalid JSON body")
	}
	return nil
}

// pathID parses the {id} URL parameter. resource names the entity in the
// error message.
func pathID(r *http.Request, resource string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, models.NewInvalidIDError(resource)
	}
	return id, nil
}

func identity(r *http.Request) (*models.User, error) {
	u, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return nil, &models.APIError{Kind: models.KindUnauthorized, Message: "Unauthorized - No user found"}
	}
	return u, nil
}
