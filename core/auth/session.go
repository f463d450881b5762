package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/shenulal/telematics-io-manager/core/store"
	"github.com/shenulal/telematics-io-manager/core/utils"
)

const sessionTokenBytes = 64

// SessionManager owns the opaque server-side session records. The token it
// generates is unrelated to the signed refresh JWT: revoking the record is
// what ends a session, regardless of what tokens the client still holds.
type SessionManager struct {
	sessions store.SessionStore
	ttl      time.Duration
	logger   *utils.Logger
}

func NewSessionManager(sessions store.SessionStore, ttl time.Duration, logger *utils.Logger) *SessionManager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionManager{sessions: sessions, ttl: ttl, logger: logger}
}

func (sm *SessionManager) Create(ctx context.Context, userID int64, ip, userAgent string) (*store.SessionRecord, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rec := &store.SessionRecord{
		UserID:    userID,
		Token:     token,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(sm.ttl),
	}
	if err := sm.sessions.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Validate returns the live session record for the token, or nil when the
// token is unknown, revoked, or expired.
func (sm *SessionManager) Validate(ctx context.Context, token string) (*store.SessionRecord, error) {
	if token == "" {
		return nil, nil
	}
	return sm.sessions.GetActiveByToken(ctx, token)
}

func (sm *SessionManager) Revoke(ctx context.Context, token, by string) error {
	return sm.sessions.Revoke(ctx, token, by)
}

func (sm *SessionManager) RevokeAllForUser(ctx context.Context, userID int64, by string) error {
	return sm.sessions.RevokeAllForUser(ctx, userID, by)
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
