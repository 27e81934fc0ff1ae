package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sevasetu/backoffice/internal/http/respond"
	"github.com/sevasetu/backoffice/internal/models"
)

// RequireRoles authorizes the resolved user against a per-route allow-list.
// An empty allow-list admits any authenticated user.
//
// Missing principal means authentication never ran or failed upstream: that
// is 401, never 403. A known principal with the wrong role is 403 with the
// allow-list echoed for diagnosability.
func RequireRoles(allowed ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				respond.Error(w, http.StatusUnauthorized, msgTokenRequired)
				return
			}

			if len(allowed) > 0 && !roleAllowed(user.Role, allowed) {
				respond.Error(w, http.StatusForbidden,
					fmt.Sprintf("requires one of roles: %s", joinRoles(allowed)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func roleAllowed(role models.Role, allowed []models.Role) bool {
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}

func joinRoles(roles []models.Role) string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return strings.Join(names, ", ")
}
