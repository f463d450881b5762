package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

type UsersStore interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Get(ctx context.Context, userID int64) (*User, error)
	Create(ctx context.Context, user *User, roles []string) (int64, error)
	List(ctx context.Context, f UserFilter) ([]UserWithRoles, int, error)
	Update(ctx context.Context, user *User, roles []string) error
	UpdatePassword(ctx context.Context, userID int64, hash, salt string) error
	SetLastLogin(ctx context.Context, userID int64, at time.Time) error
	Delete(ctx context.Context, userID int64) error
	RolesForUser(ctx context.Context, userID int64) ([]string, error)
}

type UserFilter struct {
	Query    string
	Role     string
	Active   *bool
	Page     int
	PageSize int
}

type usersStore struct {
	db *sql.DB
}

func NewUsersStore(db *sql.DB) UsersStore {
	return &usersStore{db: db}
}

const userColumns = `id, username, email, password_hash, salt, first_name, last_name, active, last_login_at, created_at, updated_at`

func (s *usersStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username=?`, strings.ToLower(username))
	return scanUser(row)
}

func (s *usersStore) Get(ctx context.Context, userID int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, userID)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	u := User{}
	var active int
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Salt, &u.FirstName, &u.LastName, &active, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	u.Active = active == 1
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return &u, nil
}

func (s *usersStore) Create(ctx context.Context, user *User, roles []string) (int64, error) {
	now := time.Now().UTC()
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO users(username, email, password_hash, salt, first_name, last_name, active, last_login_at, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		user.Username, user.Email, user.PasswordHash, user.Salt, user.FirstName, user.LastName, boolToInt(user.Active), nullTime(user.LastLoginAt), now, now)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	userID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := replaceUserRoles(ctx, tx, userID, roles); err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	user.ID = userID
	user.CreatedAt = now
	user.UpdatedAt = now
	return userID, nil
}

// Update persists identity, credential and profile fields; a nil roles
// slice leaves role assignments untouched.
func (s *usersStore) Update(ctx context.Context, user *User, roles []string) error {
	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE users SET username=?, email=?, password_hash=?, salt=?, first_name=?, last_name=?, active=?, updated_at=? WHERE id=?`,
		strings.ToLower(strings.TrimSpace(user.Username)), strings.ToLower(strings.TrimSpace(user.Email)),
		user.PasswordHash, user.Salt, user.FirstName, user.LastName, boolToInt(user.Active), now, user.ID)
	if err != nil {
		tx.Rollback()
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return sql.ErrNoRows
	}
	if roles != nil {
		if err := replaceUserRoles(ctx, tx, user.ID, roles); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func replaceUserRoles(ctx context.Context, tx *sql.Tx, userID int64, roles []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id=?`, userID); err != nil {
		return err
	}
	for _, name := range roles {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_roles(user_id, role_id)
			SELECT ?, id FROM roles WHERE name=?`, userID, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *usersStore) UpdatePassword(ctx context.Context, userID int64, hash, salt string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=?, salt=?, updated_at=? WHERE id=?`,
		hash, salt, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *usersStore) SetLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at=? WHERE id=?`, at, userID)
	return err
}

func (s *usersStore) Delete(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id=?`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *usersStore) RolesForUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.name FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id=? ORDER BY r.name`, userID)
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

func (s *usersStore) List(ctx context.Context, f UserFilter) ([]UserWithRoles, int, error) {
	where, args := userFilterClause(f)
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users u`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := pageToLimitOffset(f.Page, f.PageSize)
	query := `SELECT u.id, u.username, u.email, u.password_hash, u.salt, u.first_name, u.last_name, u.active, u.last_login_at, u.created_at, u.updated_at FROM users u` +
		where + ` ORDER BY u.username LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []UserWithRoles
	for rows.Next() {
		var u UserWithRoles
		var active int
		var lastLogin sql.NullTime
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Salt, &u.FirstName, &u.LastName, &active, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		u.Active = active == 1
		if lastLogin.Valid {
			u.LastLoginAt = &lastLogin.Time
		}
		res = append(res, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range res {
		roles, err := s.RolesForUser(ctx, res[i].ID)
		if err != nil {
			return nil, 0, err
		}
		res[i].Roles = roles
	}
	return res, total, nil
}

func userFilterClause(f UserFilter) (string, []any) {
	var conds []string
	var args []any
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		conds = append(conds, `(u.username LIKE ? OR u.email LIKE ? OR LOWER(u.first_name) LIKE ? OR LOWER(u.last_name) LIKE ?)`)
		like := "%" + q + "%"
		args = append(args, like, like, like, like)
	}
	if r := strings.ToLower(strings.TrimSpace(f.Role)); r != "" {
		conds = append(conds, `u.id IN (SELECT ur.user_id FROM user_roles ur JOIN roles r ON r.id=ur.role_id WHERE r.name=?)`)
		args = append(args, r)
	}
	if f.Active != nil {
		conds = append(conds, `u.active=?`)
		args = append(args, boolToInt(*f.Active))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func pageToLimitOffset(page, pageSize int) (int, int) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	if page <= 0 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}
