package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Ceasar-x/sschool/models"
	"github.com/Ceasar-x/sschool/service"
	"github.com/Ceasar-x/sschool/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	holderKey   contextKey = "identity_holder"
)

type identityHolder struct {
	userID string
}

func withIdentityHolder(ctx context.Context, h *identityHolder) context.Context {
	return context.WithValue(ctx, holderKey, h)
}

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*service.Claims, error)
}

// IdentityFinder loads the user named by a token. The returned user must not
// carry a password digest.
type IdentityFinder interface {
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Auth resolves the bearer token to a stored user and attaches it to the
// request context. Every request costs one store read.
func Auth(tokens TokenVerifier, users IdentityFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, models.NewUnauthenticatedError("Access denied. No valid token provided."))
				return
			}

			claims, err := tokens.Verify(raw)
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				WriteError(w, models.NewUnauthenticatedError("Token has expired"))
				return
			case err != nil:
				WriteError(w, models.NewUnauthenticatedError("Invalid token"))
				return
			}

			id, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				WriteError(w, models.NewUnauthenticatedError("Invalid token"))
				return
			}

			user, err := users.UserByID(r.Context(), id)
			switch {
			case errors.Is(err, store.ErrNotFound):
				WriteError(w, models.NewUnauthenticatedError("Token is not valid - user not found"))
				return
			case err != nil:
				slog.Error("auth: load identity", slog.String("user_id", claims.UserID), slog.String("error", err.Error()))
				WriteError(w, models.NewInternalError("Server error in authentication"))
				return
			}

			identity := user.Sanitized()
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), &identity)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func ContextWithIdentity(ctx context.Context, user *models.User) context.Context {
	if h, ok := ctx.Value(holderKey).(*identityHolder); ok && user != nil {
		h.userID = user.ID.Hex()
	}
	return context.WithValue(ctx, identityKey, user)
}

// IdentityFromContext returns the user attached by Auth.
func IdentityFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(identityKey).(*models.User)
	return u, ok && u != nil
}

// UserIDFromContext returns the authenticated user's hex id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	u, ok := IdentityFromContext(ctx)
	if !ok {
		return "", false
	}
	return u.ID.Hex(), true
}
