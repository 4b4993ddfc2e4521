package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestVerifyValidToken(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub":   "user-1",
		"email": "alice@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "user-1" {
		t.Errorf("user id = %q, want user-1", id.UserID)
	}
	if id.Email != "alice@example.com" {
		t.Errorf("email = %q, want alice@example.com", id.Email)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, []byte("other-secret"), jwt.MapClaims{
		"sub":   "user-1",
		"email": "alice@example.com",
	})

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub":   "user-1",
		"email": "alice@example.com",
		"exp":   time.Now().Add(-time.Hour).Unix(),
	})

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsUnexpectedAlgorithm(t *testing.T) {
	v := NewVerifier(testSecret)

	// HS384 is a valid HMAC variant but not the one tokens are issued with.
	token := signToken(t, jwt.SigningMethodHS384, []byte(testSecret), jwt.MapClaims{
		"sub":   "user-1",
		"email": "alice@example.com",
	})
	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("HS384: err = %v, want ErrInvalidToken", err)
	}

	// alg=none must never pass.
	none := signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{
		"sub":   "user-1",
		"email": "alice@example.com",
	})
	if _, err := v.Verify(none); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("none: err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyMissingClaims(t *testing.T) {
	v := NewVerifier(testSecret)

	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"no subject", jwt.MapClaims{"email": "alice@example.com"}},
		{"empty subject", jwt.MapClaims{"sub": "", "email": "alice@example.com"}},
		{"no email", jwt.MapClaims{"sub": "user-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), tt.claims)
			if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestVerifyGarbage(t *testing.T) {
	v := NewVerifier(testSecret)
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("token %q: err = %v, want ErrInvalidToken", token, err)
		}
	}
}
