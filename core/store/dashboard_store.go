package store

import (
	"context"
	"database/sql"
	"time"
)

// DashboardStats is the row-count summary behind /api/dashboard/stats.
type DashboardStats struct {
	Vendors        int `json:"vendors"`
	Products       int `json:"products"`
	IOUniversal    int `json:"io_universal"`
	IOMappings     int `json:"io_mappings"`
	Users          int `json:"users"`
	Roles          int `json:"roles"`
	ActiveSessions int `json:"active_sessions"`
	AuditLogs      int `json:"audit_logs"`
}

type DashboardStore interface {
	Stats(ctx context.Context) (*DashboardStats, error)
}

type dashboardStore struct {
	db *sql.DB
}

func NewDashboardStore(db *sql.DB) DashboardStore {
	return &dashboardStore{db: db}
}

func (s *dashboardStore) Stats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(1) FROM vendors`, &stats.Vendors},
		{`SELECT COUNT(1) FROM products`, &stats.Products},
		{`SELECT COUNT(1) FROM io_universal`, &stats.IOUniversal},
		{`SELECT COUNT(1) FROM io_mappings`, &stats.IOMappings},
		{`SELECT COUNT(1) FROM users`, &stats.Users},
		{`SELECT COUNT(1) FROM roles`, &stats.Roles},
		{`SELECT COUNT(1) FROM audit_logs`, &stats.AuditLogs},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sessions WHERE revoked_at IS NULL AND expires_at > ?`,
		time.Now().UTC()).Scan(&stats.ActiveSessions)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
