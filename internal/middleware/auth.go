package middleware

import (
	"net/http"
	"strings"

	"github.com/payview/server/internal/auth"
	"github.com/payview/server/internal/store"
)

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// RequireAuth verifies the bearer token, lazily creates the viewer's profile
// on first authenticated access, and populates the request context. Requests
// without a valid token get 401.
func RequireAuth(verifier *auth.Verifier, profiles *store.ProfileStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := authenticate(r, verifier, profiles)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

// OptionalAuth populates the context when a valid bearer token is present and
// passes the request through anonymously otherwise.
func OptionalAuth(verifier *auth.Verifier, profiles *store.ProfileStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ac, ok := authenticate(r, verifier, profiles); ok {
				r = r.WithContext(auth.WithAuth(r.Context(), ac))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(r *http.Request, verifier *auth.Verifier, profiles *store.ProfileStore) (auth.AuthContext, bool) {
	token := bearerToken(r)
	if token == "" {
		return auth.AuthContext{}, false
	}
	id, err := verifier.Verify(token)
	if err != nil {
		return auth.AuthContext{}, false
	}
	profile, err := profiles.GetOrCreate(id.UserID, id.Email)
	if err != nil || profile == nil {
		return auth.AuthContext{}, false
	}
	return auth.AuthContext{
		UserID:    id.UserID,
		Email:     id.Email,
		ProfileID: profile.ID,
	}, true
}
