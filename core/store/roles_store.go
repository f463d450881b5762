package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// ErrSystemRole is returned for operations system roles do not allow:
// renaming and deletion. Their permission set stays editable.
var ErrSystemRole = errors.New("system role")

type RolesStore interface {
	List(ctx context.Context) ([]Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	FindByID(ctx context.Context, id int64) (*Role, error)
	Create(ctx context.Context, role *Role) (int64, error)
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id int64) error
	EnsureBuiltIn(ctx context.Context, roles []Role) error
}

type rolesStore struct {
	db *sql.DB
}

func NewRolesStore(db *sql.DB) RolesStore {
	return &rolesStore{db: db}
}

func (s *rolesStore) List(ctx context.Context) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, is_system, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Role
	for rows.Next() {
		var r Role
		var isSystem int
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &isSystem, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.IsSystem = isSystem == 1
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		perms, err := s.permissionsForRole(ctx, res[i].ID)
		if err != nil {
			return nil, err
		}
		res[i].Permissions = perms
	}
	return res, nil
}

func (s *rolesStore) FindByName(ctx context.Context, name string) (*Role, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, description, is_system, created_at, updated_at FROM roles WHERE name=?`, strings.ToLower(name))
	return s.scanRole(ctx, row)
}

func (s *rolesStore) FindByID(ctx context.Context, id int64) (*Role, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, description, is_system, created_at, updated_at FROM roles WHERE id=?`, id)
	return s.scanRole(ctx, row)
}

func (s *rolesStore) scanRole(ctx context.Context, row *sql.Row) (*Role, error) {
	var r Role
	var isSystem int
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &isSystem, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	r.IsSystem = isSystem == 1
	perms, err := s.permissionsForRole(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	r.Permissions = perms
	return &r, nil
}

func (s *rolesStore) permissionsForRole(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.name FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id=? ORDER BY p.name`, roleID)
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

func (s *rolesStore) Create(ctx context.Context, role *Role) (int64, error) {
	role.Name = strings.ToLower(strings.TrimSpace(role.Name))
	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO roles(name, description, is_system, created_at, updated_at) VALUES(?,?,?,?,?)`,
		role.Name, role.Description, boolToInt(role.IsSystem), now, now)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	roleID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := replaceRolePermissions(ctx, tx, roleID, role.Permissions); err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	role.ID = roleID
	return roleID, nil
}

// Update edits description and permission set. The name of a system role is
// immutable; for regular roles a non-empty Name renames.
func (s *rolesStore) Update(ctx context.Context, role *Role) error {
	existing, err := s.FindByID(ctx, role.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return sql.ErrNoRows
	}
	name := strings.ToLower(strings.TrimSpace(role.Name))
	if existing.IsSystem && name != "" && name != existing.Name {
		return ErrSystemRole
	}
	if name == "" {
		name = existing.Name
	}
	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE roles SET name=?, description=?, updated_at=? WHERE id=?`,
		name, role.Description, now, role.ID); err != nil {
		tx.Rollback()
		return err
	}
	if role.Permissions != nil {
		if err := replaceRolePermissions(ctx, tx, role.ID, role.Permissions); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *rolesStore) Delete(ctx context.Context, id int64) error {
	existing, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return sql.ErrNoRows
	}
	if existing.IsSystem {
		return ErrSystemRole
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM roles WHERE id=?`, id)
	return err
}

func replaceRolePermissions(ctx context.Context, tx *sql.Tx, roleID int64, perms []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id=?`, roleID); err != nil {
		return err
	}
	for _, name := range perms {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO role_permissions(role_id, permission_id)
			SELECT ?, id FROM permissions WHERE name=?`, roleID, name); err != nil {
			return err
		}
	}
	return nil
}

// EnsureBuiltIn inserts missing system roles with their default permission
// sets; existing roles are left untouched so operator edits survive restarts.
func (s *rolesStore) EnsureBuiltIn(ctx context.Context, roles []Role) error {
	for _, role := range roles {
		existing, err := s.FindByName(ctx, role.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		role.IsSystem = true
		if _, err := s.Create(ctx, &role); err != nil {
			return err
		}
	}
	return nil
}
