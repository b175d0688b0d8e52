package middleware

import (
	"net/http"
	"strings"

	"github.com/Ceasar-x/sschool/models"
)

// Authorize reports whether identity holds one of roles.
func Authorize(identity *models.User, roles ...models.Role) error {
	if identity == nil {
		return &models.APIError{Kind: models.KindUnauthorized, Message: "Unauthorized - No user found"}
	}
	for _, role := range roles {
		if identity.Role == role {
			return nil
		}
	}
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = role.String()
	}
	return models.NewForbiddenError("Forbidden - Required role: " + strings.Join(names, " or ") + ", Your role: " + identity.Role.String())
}

// RequireRoles gates a route group on the identity attached by Auth. It must be
// mounted after Auth.
func RequireRoles(roles ...models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, _ := IdentityFromContext(r.Context())
			if err := Authorize(identity, roles...); err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
