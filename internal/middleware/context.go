package middleware

import (
	"context"

	"github.com/sevasetu/backoffice/internal/models"
)

type userContextKey struct{}

// WithUser attaches the resolved profile to the request context.
func WithUser(ctx context.Context, profile models.Profile) context.Context {
	return context.WithValue(ctx, userContextKey{}, profile)
}

// UserFromContext returns the profile attached by the Authenticator, if any.
func UserFromContext(ctx context.Context) (models.Profile, bool) {
	profile, ok := ctx.Value(userContextKey{}).(models.Profile)
	return profile, ok
}
