package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/motoyard/motoyard-backend/pkg/auth"
	"github.com/motoyard/motoyard-backend/pkg/config"
	"github.com/motoyard/motoyard-backend/pkg/logger"
)

var authTestJWT = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "motoyard",
	ExpirationMinutes: 30,
}

type stubSessionChecker struct {
	active map[string]bool
	err    error
}

func (s *stubSessionChecker) HasSession(_ context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.active[accessID], nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func mintTestToken(t *testing.T, userID uuid.UUID, superuser bool, jti string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(authTestJWT, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:      userID,
		IsSuperuser: superuser,
		JTI:         jti,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthMiddleware(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()
	checker := &stubSessionChecker{active: map[string]bool{"session-1": true}}

	var gotUserID string
	var gotSuperuser bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotSuperuser = IsSuperuserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Auth(authTestJWT, checker, logg)(next)

	makeRequest := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid token", func(t *testing.T) {
		token := mintTestToken(t, userID, true, "session-1")
		rec := makeRequest("Bearer " + token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotUserID != userID.String() {
			t.Fatalf("expected user id in context, got %q", gotUserID)
		}
		if !gotSuperuser {
			t.Fatal("expected superuser flag in context")
		}
	})

	t.Run("missing header", func(t *testing.T) {
		rec := makeRequest("")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := makeRequest("Bearer not-a-jwt")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("tampered signature", func(t *testing.T) {
		token := mintTestToken(t, userID, false, "session-1")
		rec := makeRequest("Bearer " + token + "x")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("revoked session", func(t *testing.T) {
		token := mintTestToken(t, userID, false, "session-gone")
		rec := makeRequest("Bearer " + token)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestRequireSuperuser(t *testing.T) {
	logg := testLogger()
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireSuperuser(logg)(next)

	t.Run("superuser passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/motorcycles", nil)
		req = req.WithContext(WithSuperuser(WithUserID(context.Background(), uuid.NewString()), true))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("regular user blocked", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/motorcycles", nil)
		req = req.WithContext(WithUserID(context.Background(), uuid.NewString()))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}
