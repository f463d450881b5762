package store

import (
	"context"
	"database/sql"
)

type PermissionsStore interface {
	List(ctx context.Context) ([]PermissionRecord, error)
	// ResolveForUser computes the deduplicated union of permission names
	// granted through every role the user holds. Executed fresh per
	// request: a revoked permission takes effect on the next call.
	ResolveForUser(ctx context.Context, userID int64) ([]string, error)
	EnsureCatalog(ctx context.Context, perms []PermissionRecord) error
}

type permissionsStore struct {
	db *sql.DB
}

func NewPermissionsStore(db *sql.DB) PermissionsStore {
	return &permissionsStore{db: db}
}

func (s *permissionsStore) List(ctx context.Context) ([]PermissionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, module, action FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []PermissionRecord
	for rows.Next() {
		var p PermissionRecord
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Module, &p.Action); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (s *permissionsStore) ResolveForUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = ?
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		res = append(res, name)
	}
	return res, rows.Err()
}

// EnsureCatalog seeds missing catalog rows; the catalog is read-only through
// the API.
func (s *permissionsStore) EnsureCatalog(ctx context.Context, perms []PermissionRecord) error {
	for _, p := range perms {
		if _, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO permissions(name, description, module, action) VALUES(?,?,?,?)`,
			p.Name, p.Description, p.Module, p.Action); err != nil {
			return err
		}
	}
	return nil
}
