package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sevasetu/backoffice/internal/auth"
	"github.com/sevasetu/backoffice/internal/http/respond"
	"github.com/sevasetu/backoffice/internal/models"
	"github.com/sevasetu/backoffice/internal/storage"
)

const (
	msgTokenRequired = "access token required"
	msgTokenInvalid  = "invalid or expired token"
)

// Authenticator verifies the bearer token on every request and attaches the
// resolved profile to the context. It rejects with 401 before any downstream
// stage runs; authorization is a separate, later stage (RequireRoles).
//
// An unknown subject and an inactive account produce the same 401 as an
// expired token, so account existence cannot be probed through this gate.
func Authenticator(tokens *auth.TokenManager, users storage.UserStore, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respond.Error(w, http.StatusUnauthorized, msgTokenRequired)
				return
			}

			userID, claims, err := tokens.Verify(token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					log.Info("rejected expired token", "path", r.URL.Path)
				case errors.Is(err, auth.ErrTokenMalformed):
					log.Warn("rejected malformed token", "path", r.URL.Path)
				default:
					log.Warn("rejected token with bad signature", "path", r.URL.Path)
				}
				respond.Error(w, http.StatusUnauthorized, msgTokenInvalid)
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					log.Info("rejected token for unknown user", "user_id", userID)
					respond.Error(w, http.StatusUnauthorized, msgTokenInvalid)
					return
				}
				log.Error("user lookup failed", "user_id", userID, "error", err)
				respond.Error(w, http.StatusInternalServerError, "authentication error")
				return
			}
			if user.Status != models.StatusActive {
				// Deliberately indistinguishable from an expired token.
				log.Info("rejected token for inactive user", "user_id", userID)
				respond.Error(w, http.StatusUnauthorized, msgTokenInvalid)
				return
			}

			_ = claims // role decisions read the live user record, not the token

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user.Profile())))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}
