package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

type IOUniversalStore interface {
	List(ctx context.Context, f IOUniversalFilter) ([]IOUniversal, int, error)
	Get(ctx context.Context, id int64) (*IOUniversal, error)
	FindByIOID(ctx context.Context, ioID int64) (*IOUniversal, error)
	Create(ctx context.Context, io *IOUniversal) (int64, error)
	Update(ctx context.Context, io *IOUniversal) error
	Delete(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]string, error)
}

type IOUniversalFilter struct {
	Query    string
	Category string
	DataType string
	Page     int
	PageSize int
}

type ioUniversalStore struct {
	db *sql.DB
}

func NewIOUniversalStore(db *sql.DB) IOUniversalStore {
	return &ioUniversalStore{db: db}
}

const ioUniversalColumns = `id, io_id, name, description, data_type, unit, category, created_at, updated_at`

func ioUniversalFilterClause(f IOUniversalFilter) (string, []any) {
	var conds []string
	var args []any
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		conds = append(conds, `(LOWER(name) LIKE ? OR CAST(io_id AS TEXT) LIKE ?)`)
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	if f.Category != "" {
		conds = append(conds, `category=?`)
		args = append(args, f.Category)
	}
	if f.DataType != "" {
		conds = append(conds, `data_type=?`)
		args = append(args, f.DataType)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *ioUniversalStore) List(ctx context.Context, f IOUniversalFilter) ([]IOUniversal, int, error) {
	where, args := ioUniversalFilterClause(f)
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM io_universal`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := pageToLimitOffset(f.Page, f.PageSize)
	rows, err := s.db.QueryContext(ctx, `SELECT `+ioUniversalColumns+` FROM io_universal`+where+` ORDER BY io_id LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []IOUniversal
	for rows.Next() {
		var io IOUniversal
		if err := rows.Scan(&io.ID, &io.IOID, &io.Name, &io.Description, &io.DataType, &io.Unit, &io.Category, &io.CreatedAt, &io.UpdatedAt); err != nil {
			return nil, 0, err
		}
		res = append(res, io)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

func (s *ioUniversalStore) Get(ctx context.Context, id int64) (*IOUniversal, error) {
	return scanIOUniversal(s.db.QueryRowContext(ctx, `SELECT `+ioUniversalColumns+` FROM io_universal WHERE id=?`, id))
}

func (s *ioUniversalStore) FindByIOID(ctx context.Context, ioID int64) (*IOUniversal, error) {
	return scanIOUniversal(s.db.QueryRowContext(ctx, `SELECT `+ioUniversalColumns+` FROM io_universal WHERE io_id=?`, ioID))
}

func scanIOUniversal(row *sql.Row) (*IOUniversal, error) {
	var io IOUniversal
	if err := row.Scan(&io.ID, &io.IOID, &io.Name, &io.Description, &io.DataType, &io.Unit, &io.Category, &io.CreatedAt, &io.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &io, nil
}

func (s *ioUniversalStore) Create(ctx context.Context, io *IOUniversal) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO io_universal(io_id, name, description, data_type, unit, category, created_at, updated_at) VALUES(?,?,?,?,?,?,?,?)`,
		io.IOID, strings.TrimSpace(io.Name), io.Description, io.DataType, io.Unit, io.Category, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	io.ID = id
	io.CreatedAt = now
	io.UpdatedAt = now
	return id, nil
}

func (s *ioUniversalStore) Update(ctx context.Context, io *IOUniversal) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE io_universal SET io_id=?, name=?, description=?, data_type=?, unit=?, category=?, updated_at=? WHERE id=?`,
		io.IOID, strings.TrimSpace(io.Name), io.Description, io.DataType, io.Unit, io.Category, time.Now().UTC(), io.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *ioUniversalStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM io_universal WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *ioUniversalStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM io_universal WHERE category<>'' ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
