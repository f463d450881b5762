package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shenulal/telematics-io-manager/config"
	"github.com/shenulal/telematics-io-manager/core/auth"
	"github.com/shenulal/telematics-io-manager/core/rbac"
)

func identityRequest(method, target string, perms ...string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	id := &auth.Identity{UserID: 7, Username: "operator", Permissions: rbac.NewSet(perms)}
	return req.WithContext(auth.ContextWithIdentity(req.Context(), id))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success {
		t.Fatalf("expected success=false, body=%s", rr.Body.String())
	}
	return body.Error
}

func TestRequirePermissionDeniesMissingPermission(t *testing.T) {
	s := &Server{}
	handler := s.requirePermission("vendors.create")(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rr := httptest.NewRecorder()
	handler(rr, identityRequest(http.MethodPost, "/api/vendors", "vendors.read"))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); msg != forbiddenMessage {
		t.Fatalf("error = %q, want %q", msg, forbiddenMessage)
	}
}

func TestRequirePermissionAllowsHolder(t *testing.T) {
	s := &Server{}
	called := false
	handler := s.requirePermission("vendors.create")(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})
	rr := httptest.NewRecorder()
	handler(rr, identityRequest(http.MethodPost, "/api/vendors", "vendors.create"))
	if !called || rr.Code != http.StatusCreated {
		t.Fatalf("handler not reached, status=%d", rr.Code)
	}
}

func TestRequirePermissionWithoutIdentityIsUnauthorized(t *testing.T) {
	s := &Server{}
	handler := s.requirePermission("vendors.read")(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodGet, "/api/vendors", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireAdminOrPermissionAcceptsAdminFamily(t *testing.T) {
	s := &Server{}
	handler := s.requireAdminOrPermission("audit_logs.read")(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	handler(rr, identityRequest(http.MethodGet, "/api/audit-logs", "users.read"))
	if rr.Code != http.StatusOK {
		t.Fatalf("admin family should pass, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler(rr, identityRequest(http.MethodGet, "/api/audit-logs", "vendors.read"))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("unrelated permission should fail, got %d", rr.Code)
	}
}

func TestRequireAnyPermission(t *testing.T) {
	s := &Server{}
	handler := s.requireAnyPermission("vendors.read", "products.read")(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rr := httptest.NewRecorder()
	handler(rr, identityRequest(http.MethodGet, "/api/vendors", "products.read"))
	if rr.Code != http.StatusOK {
		t.Fatalf("any-of should pass, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	handler(rr, identityRequest(http.MethodGet, "/api/vendors", "io_universal.read"))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestWithAuthRejectsMissingToken(t *testing.T) {
	s := &Server{}
	handler := s.withAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodGet, "/api/vendors", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); msg != "Unauthorized" {
		t.Fatalf("error = %q", msg)
	}
}

func TestWithAuthRejectsGarbageToken(t *testing.T) {
	tokens, err := auth.NewTokenIssuer("test-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	s := &Server{tokens: tokens}
	handler := s.withAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/vendors", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()
	handler(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestWithAuthRejectsRefreshTokenOnAccessPath(t *testing.T) {
	tokens, err := auth.NewTokenIssuer("test-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	refresh, err := tokens.IssueRefreshToken(1, "admin", "admin@localhost")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	s := &Server{tokens: tokens}
	handler := s.withAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/vendors", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rr := httptest.NewRecorder()
	handler(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token must not pass the access gate, got %d", rr.Code)
	}
}

func TestRateLimitLoginThrottles(t *testing.T) {
	s := &Server{loginLimiter: newLimiter(2, time.Hour)}
	handler := s.rateLimitLogin(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.1.2.3:5000"
		rr := httptest.NewRecorder()
		handler(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("attempt %d should pass, got %d", i+1, rr.Code)
		}
	}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.1.2.3:5000"
	rr := httptest.NewRecorder()
	handler(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}

	// A different address keeps its own bucket.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.9.9.9:5000"
	rr = httptest.NewRecorder()
	handler(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("other client should not be throttled, got %d", rr.Code)
	}
}

func TestResolveClientIPTrustedProxy(t *testing.T) {
	s := &Server{cfg: &config.AppConfig{Security: config.SecurityConfig{TrustedProxies: []string{"10.0.0.1"}}}}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := s.resolveClientIP(req); got != "203.0.113.7" {
		t.Fatalf("trusted proxy should yield forwarded address, got %q", got)
	}

	// A direct client cannot spoof via the header.
	req.RemoteAddr = "198.51.100.2:1234"
	if got := s.resolveClientIP(req); got != "198.51.100.2" {
		t.Fatalf("untrusted peer must use remote addr, got %q", got)
	}
}
