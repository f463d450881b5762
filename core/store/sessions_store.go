package store

import (
	"context"
	"database/sql"
	"time"
)

type SessionStore interface {
	Create(ctx context.Context, rec *SessionRecord) error
	// GetActiveByToken returns nil for unknown, revoked, and expired tokens.
	GetActiveByToken(ctx context.Context, token string) (*SessionRecord, error)
	// FindByToken returns the raw row regardless of revocation state.
	FindByToken(ctx context.Context, token string) (*SessionRecord, error)
	ListByUser(ctx context.Context, userID int64) ([]SessionRecord, error)
	Revoke(ctx context.Context, token string, by string) error
	RevokeAllForUser(ctx context.Context, userID int64, by string) error
	RevokeExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionsStore struct {
	db *sql.DB
}

func NewSessionsStore(db *sql.DB) SessionStore {
	return &sessionsStore{db: db}
}

const sessionColumns = `id, user_id, token, ip, user_agent, created_at, expires_at, revoked_at, revoked_by`

func (s *sessionsStore) Create(ctx context.Context, rec *SessionRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions(user_id, token, ip, user_agent, created_at, expires_at, revoked_at, revoked_by)
		VALUES(?,?,?,?,?,?,?,?)`,
		rec.UserID, rec.Token, rec.IP, rec.UserAgent, rec.CreatedAt, rec.ExpiresAt, nullTime(rec.RevokedAt), rec.RevokedBy)
	if err != nil {
		return err
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

func (s *sessionsStore) FindByToken(ctx context.Context, token string) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token=?`, token)
	return scanSession(row)
}

func (s *sessionsStore) GetActiveByToken(ctx context.Context, token string) (*SessionRecord, error) {
	rec, err := s.FindByToken(ctx, token)
	if err != nil || rec == nil {
		return nil, err
	}
	if rec.RevokedAt != nil {
		return nil, nil
	}
	if time.Now().UTC().After(rec.ExpiresAt) {
		return nil, nil
	}
	return rec, nil
}

func scanSession(row *sql.Row) (*SessionRecord, error) {
	var rec SessionRecord
	var revokedAt sql.NullTime
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Token, &rec.IP, &rec.UserAgent, &rec.CreatedAt, &rec.ExpiresAt, &revokedAt, &rec.RevokedBy); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if revokedAt.Valid {
		rec.RevokedAt = &revokedAt.Time
	}
	return &rec, nil
}

func (s *sessionsStore) ListByUser(ctx context.Context, userID int64) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id=? AND revoked_at IS NULL AND expires_at > ?
		ORDER BY created_at DESC`, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var revokedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Token, &rec.IP, &rec.UserAgent, &rec.CreatedAt, &rec.ExpiresAt, &revokedAt, &rec.RevokedBy); err != nil {
			return nil, err
		}
		if revokedAt.Valid {
			rec.RevokedAt = &revokedAt.Time
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// Revoke is soft: the row is kept with revoked_at set, never deleted.
func (s *sessionsStore) Revoke(ctx context.Context, token string, by string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET revoked_at=?, revoked_by=? WHERE token=? AND revoked_at IS NULL`, now, by, token)
	return err
}

func (s *sessionsStore) RevokeAllForUser(ctx context.Context, userID int64, by string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET revoked_at=?, revoked_by=? WHERE user_id=? AND revoked_at IS NULL`, now, by, userID)
	return err
}

func (s *sessionsStore) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET revoked_at=?, revoked_by='system' WHERE revoked_at IS NULL AND expires_at <= ?`, now.UTC(), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
