package httpserver

import (
	"context"
	"net/http"

	"github.com/fairyhunter13/video-gen-api/internal/adapter/store/memstore"
	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

type userKey struct{}

// UserFrom returns the authenticated user stored on the request context.
func UserFrom(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userKey{}).(domain.User)
	return u, ok
}

// Authenticate resolves the X-API-Key header to a user and stores it on
// the context. Requests without a key get AUTH_MISSING_CREDENTIALS;
// unknown or deactivated keys get AUTH_INVALID_KEY.
func Authenticate(store *memstore.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				writeError(w, r, domain.ErrMissingCredentials())
				return
			}
			user, ok := store.UserByAPIKey(key)
			if !ok {
				writeError(w, r, domain.ErrInvalidKey())
				return
			}
			ctx := context.WithValue(r.Context(), userKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTier gates a route group behind a minimum subscription tier.
// It must run after Authenticate.
func RequireTier(min domain.Tier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFrom(r.Context())
			if !ok {
				writeError(w, r, domain.ErrMissingCredentials())
				return
			}
			if !user.Tier.AtLeast(min) {
				writeError(w, r, domain.ErrInsufficientTier(user.Tier, min, nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
