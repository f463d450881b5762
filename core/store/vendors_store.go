package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

type VendorsStore interface {
	List(ctx context.Context, f VendorFilter) ([]Vendor, int, error)
	Get(ctx context.Context, id int64) (*Vendor, error)
	FindByCode(ctx context.Context, code string) (*Vendor, error)
	Create(ctx context.Context, v *Vendor) (int64, error)
	Update(ctx context.Context, v *Vendor) error
	Delete(ctx context.Context, id int64) error
}

type VendorFilter struct {
	Query    string
	Active   *bool
	Page     int
	PageSize int
}

type vendorsStore struct {
	db *sql.DB
}

func NewVendorsStore(db *sql.DB) VendorsStore {
	return &vendorsStore{db: db}
}

const vendorColumns = `id, name, code, description, active, created_at, updated_at`

func (s *vendorsStore) List(ctx context.Context, f VendorFilter) ([]Vendor, int, error) {
	var conds []string
	var args []any
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		conds = append(conds, `(LOWER(name) LIKE ? OR LOWER(code) LIKE ?)`)
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	if f.Active != nil {
		conds = append(conds, `active=?`)
		args = append(args, boolToInt(*f.Active))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM vendors`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := pageToLimitOffset(f.Page, f.PageSize)
	rows, err := s.db.QueryContext(ctx, `SELECT `+vendorColumns+` FROM vendors`+where+` ORDER BY name LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []Vendor
	for rows.Next() {
		var v Vendor
		var active int
		if err := rows.Scan(&v.ID, &v.Name, &v.Code, &v.Description, &active, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, 0, err
		}
		v.Active = active == 1
		res = append(res, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

func (s *vendorsStore) Get(ctx context.Context, id int64) (*Vendor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id=?`, id)
	return scanVendor(row)
}

func (s *vendorsStore) FindByCode(ctx context.Context, code string) (*Vendor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE code=?`, strings.ToUpper(strings.TrimSpace(code)))
	return scanVendor(row)
}

func scanVendor(row *sql.Row) (*Vendor, error) {
	var v Vendor
	var active int
	if err := row.Scan(&v.ID, &v.Name, &v.Code, &v.Description, &active, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	v.Active = active == 1
	return &v, nil
}

func (s *vendorsStore) Create(ctx context.Context, v *Vendor) (int64, error) {
	now := time.Now().UTC()
	v.Code = strings.ToUpper(strings.TrimSpace(v.Code))
	res, err := s.db.ExecContext(ctx, `INSERT INTO vendors(name, code, description, active, created_at, updated_at) VALUES(?,?,?,?,?,?)`,
		strings.TrimSpace(v.Name), v.Code, v.Description, boolToInt(v.Active), now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	v.ID = id
	v.CreatedAt = now
	v.UpdatedAt = now
	return id, nil
}

func (s *vendorsStore) Update(ctx context.Context, v *Vendor) error {
	res, err := s.db.ExecContext(ctx, `UPDATE vendors SET name=?, code=?, description=?, active=?, updated_at=? WHERE id=?`,
		strings.TrimSpace(v.Name), strings.ToUpper(strings.TrimSpace(v.Code)), v.Description, boolToInt(v.Active), time.Now().UTC(), v.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *vendorsStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vendors WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
