package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/payview/server/internal/auth"
	"github.com/payview/server/internal/database"
	"github.com/payview/server/internal/store"
)

const testAuthSecret = "test-secret"

func setupAuthTest(t *testing.T) (*auth.Verifier, *store.ProfileStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return auth.NewVerifier(testAuthSecret), store.NewProfileStore(db)
}

func bearerFor(t *testing.T, userID, email string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testAuthSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func TestRequireAuthPopulatesContext(t *testing.T) {
	verifier, profiles := setupAuthTest(t)

	var got auth.AuthContext
	h := RequireAuth(verifier, profiles)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearerFor(t, "user-1", "alice@example.com"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.UserID != "user-1" || got.Email != "alice@example.com" {
		t.Errorf("auth context = %+v", got)
	}
	if got.ProfileID == "" {
		t.Error("expected lazily created profile id in context")
	}

	// The lazily created profile persists.
	p, err := profiles.GetByUserID("user-1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p == nil || p.ID != got.ProfileID {
		t.Errorf("profile = %+v, want id %q", p, got.ProfileID)
	}
}

func TestRequireAuthRejects(t *testing.T) {
	verifier, profiles := setupAuthTest(t)
	h := RequireAuth(verifier, profiles)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without valid auth")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestOptionalAuthPassesAnonymous(t *testing.T) {
	verifier, profiles := setupAuthTest(t)

	var sawContext bool
	h := OptionalAuth(verifier, profiles)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawContext = auth.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sawContext {
		t.Error("anonymous request must not carry an auth context")
	}
}

func TestOptionalAuthIdentifies(t *testing.T) {
	verifier, profiles := setupAuthTest(t)

	var got auth.AuthContext
	var ok bool
	h := OptionalAuth(verifier, profiles)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = auth.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearerFor(t, "user-1", "alice@example.com"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !ok || got.UserID != "user-1" {
		t.Errorf("auth context = %+v ok=%v, want identified user-1", got, ok)
	}
}
