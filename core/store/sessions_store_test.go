package store

import (
	"context"
	"testing"
	"time"
)

func TestSessionsActiveLookup(t *testing.T) {
	db := mustTestDB(t)
	uid := mustCreateUser(t, db, "grace", nil)
	s := NewSessionsStore(db)
	now := time.Now().UTC()

	rec := &SessionRecord{UserID: uid, Token: "tok-active", IP: "10.0.0.1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := s.Create(context.Background(), rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetActiveByToken(context.Background(), "tok-active")
	if err != nil || got == nil {
		t.Fatalf("active lookup: %v %v", got, err)
	}
	if got.UserID != uid {
		t.Fatalf("wrong user: %d", got.UserID)
	}

	if got, err := s.GetActiveByToken(context.Background(), "tok-unknown"); err != nil || got != nil {
		t.Fatalf("unknown token must be nil, nil: %v %v", got, err)
	}

	if err := s.Revoke(context.Background(), "tok-active", "grace"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if got, _ := s.GetActiveByToken(context.Background(), "tok-active"); got != nil {
		t.Fatalf("revoked token must not be active")
	}
	raw, err := s.FindByToken(context.Background(), "tok-active")
	if err != nil || raw == nil {
		t.Fatalf("raw lookup should still see the row: %v", err)
	}
	if raw.RevokedAt == nil || raw.RevokedBy != "grace" {
		t.Fatalf("revocation must be recorded, got %+v", raw)
	}
}

func TestSessionsExpiredNotActive(t *testing.T) {
	db := mustTestDB(t)
	uid := mustCreateUser(t, db, "heidi", nil)
	s := NewSessionsStore(db)
	now := time.Now().UTC()

	if err := s.Create(context.Background(), &SessionRecord{UserID: uid, Token: "tok-old", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got, _ := s.GetActiveByToken(context.Background(), "tok-old"); got != nil {
		t.Fatalf("expired token must not be active")
	}
}

func TestSessionsRevokeExpiredSweep(t *testing.T) {
	db := mustTestDB(t)
	uid := mustCreateUser(t, db, "ivan", nil)
	s := NewSessionsStore(db)
	now := time.Now().UTC()

	mk := func(token string, expires time.Time) {
		if err := s.Create(context.Background(), &SessionRecord{UserID: uid, Token: token, CreatedAt: now.Add(-3 * time.Hour), ExpiresAt: expires}); err != nil {
			t.Fatalf("create %s: %v", token, err)
		}
	}
	mk("tok-1", now.Add(-time.Hour))
	mk("tok-2", now.Add(-time.Minute))
	mk("tok-3", now.Add(time.Hour))

	n, err := s.RevokeExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 swept sessions, got %d", n)
	}

	// The sweep revokes, it never deletes.
	list, err := s.ListByUser(context.Background(), uid)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 rows after sweep, got %d", len(list))
	}
	raw, _ := s.FindByToken(context.Background(), "tok-1")
	if raw == nil || raw.RevokedAt == nil || raw.RevokedBy != "system" {
		t.Fatalf("swept session must be revoked by system, got %+v", raw)
	}

	// A second sweep finds nothing new.
	n, err = s.RevokeExpired(context.Background(), now)
	if err != nil || n != 0 {
		t.Fatalf("second sweep: n=%d err=%v", n, err)
	}
}

func TestSessionsRevokeAllForUser(t *testing.T) {
	db := mustTestDB(t)
	uid := mustCreateUser(t, db, "judy", nil)
	other := mustCreateUser(t, db, "karl", nil)
	s := NewSessionsStore(db)
	now := time.Now().UTC()

	for _, tok := range []string{"j-1", "j-2"} {
		if err := s.Create(context.Background(), &SessionRecord{UserID: uid, Token: tok, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := s.Create(context.Background(), &SessionRecord{UserID: other, Token: "k-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.RevokeAllForUser(context.Background(), uid, "admin"); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if got, _ := s.GetActiveByToken(context.Background(), "j-1"); got != nil {
		t.Fatalf("j-1 must be revoked")
	}
	if got, _ := s.GetActiveByToken(context.Background(), "k-1"); got == nil {
		t.Fatalf("other user's session must stay active")
	}
}
