package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

type AuditStore interface {
	// Insert appends one immutable row. Rows are never updated or deleted
	// by the application.
	Insert(ctx context.Context, rec *AuditRecord) error
	List(ctx context.Context, f AuditFilter) ([]AuditRecord, int, error)
}

type AuditFilter struct {
	Search   string
	Module   string
	Action   string
	UserID   int64
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

type auditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) AuditStore {
	return &auditStore{db: db}
}

func (s *auditStore) Insert(ctx context.Context, rec *AuditRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs(user_id, username, action, module, record_id, description, old_value, new_value, ip_address, user_agent, created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		nullInt64(rec.UserID), rec.Username, rec.Action, rec.Module, nullInt64(rec.RecordID), rec.Description,
		nullString(rec.OldValue), nullString(rec.NewValue), rec.IPAddress, rec.UserAgent, rec.CreatedAt)
	if err != nil {
		return err
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

func (s *auditStore) List(ctx context.Context, f AuditFilter) ([]AuditRecord, int, error) {
	where, args := auditFilterClause(f)
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := pageToLimitOffset(f.Page, f.PageSize)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, username, action, module, record_id, description, old_value, new_value, ip_address, user_agent, created_at
		FROM audit_logs`+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []AuditRecord
	for rows.Next() {
		var rec AuditRecord
		var userID, recordID sql.NullInt64
		var oldVal, newVal sql.NullString
		if err := rows.Scan(&rec.ID, &userID, &rec.Username, &rec.Action, &rec.Module, &recordID, &rec.Description, &oldVal, &newVal, &rec.IPAddress, &rec.UserAgent, &rec.CreatedAt); err != nil {
			return nil, 0, err
		}
		if userID.Valid {
			rec.UserID = &userID.Int64
		}
		if recordID.Valid {
			rec.RecordID = &recordID.Int64
		}
		rec.OldValue = oldVal.String
		rec.NewValue = newVal.String
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

func auditFilterClause(f AuditFilter) (string, []any) {
	var conds []string
	var args []any
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		conds = append(conds, `(LOWER(username) LIKE ? OR LOWER(description) LIKE ? OR LOWER(module) LIKE ?)`)
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}
	if m := strings.TrimSpace(f.Module); m != "" {
		conds = append(conds, `module=?`)
		args = append(args, m)
	}
	if a := strings.TrimSpace(f.Action); a != "" {
		conds = append(conds, `action=?`)
		args = append(args, a)
	}
	if f.UserID > 0 {
		conds = append(conds, `user_id=?`)
		args = append(args, f.UserID)
	}
	if f.DateFrom != nil {
		conds = append(conds, `created_at >= ?`)
		args = append(args, f.DateFrom.UTC())
	}
	if f.DateTo != nil {
		conds = append(conds, `created_at <= ?`)
		args = append(args, f.DateTo.UTC())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
