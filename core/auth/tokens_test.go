package auth

import (
	"strings"
	"testing"
	"time"
)

func testIssuer(t *testing.T, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	t.Helper()
	ti, err := NewTokenIssuer("test-signing-secret", accessTTL, refreshTTL)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return ti
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	ti := testIssuer(t, 15*time.Minute, 7*24*time.Hour)
	signed, err := ti.IssueAccessToken(7, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ti.Verify(signed, TokenTypeAccess)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID() != 7 || claims.Username != "alice" || claims.Email != "alice@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	ti := testIssuer(t, 15*time.Minute, 7*24*time.Hour)
	refresh, err := ti.IssueRefreshToken(7, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ti.Verify(refresh, TokenTypeAccess); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for refresh token used as access, got %v", err)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	ti := testIssuer(t, 15*time.Minute, 7*24*time.Hour)
	signed, err := ti.IssueAccessToken(7, "alice", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := ti.Verify(tampered, TokenTypeAccess); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for tampered signature, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	ti := testIssuer(t, 1*time.Nanosecond, 7*24*time.Hour)
	signed, err := ti.IssueAccessToken(7, "alice", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := ti.Verify(signed, TokenTypeAccess); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	ti := testIssuer(t, 15*time.Minute, 7*24*time.Hour)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c", strings.Repeat("x", 4096)} {
		if _, err := ti.Verify(tok, TokenTypeAccess); err != ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", tok, err)
		}
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	ti := testIssuer(t, 15*time.Minute, 7*24*time.Hour)
	other, err := NewTokenIssuer("different-secret", 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	signed, err := other.IssueAccessToken(7, "alice", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ti.Verify(signed, TokenTypeAccess); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for foreign secret, got %v", err)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	ph, err := HashPassword("s3cret", "pepper")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ok, err := VerifyPassword("s3cret", "pepper", ph)
	if err != nil || !ok {
		t.Fatalf("expected verify success, ok=%v err=%v", ok, err)
	}
	ok, err = VerifyPassword("wrong", "pepper", ph)
	if err != nil || ok {
		t.Fatalf("expected verify failure for wrong password, ok=%v err=%v", ok, err)
	}
	ok, err = VerifyPassword("s3cret", "other-pepper", ph)
	if err != nil || ok {
		t.Fatalf("expected verify failure for wrong pepper, ok=%v err=%v", ok, err)
	}
}
