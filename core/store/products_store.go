package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

type ProductsStore interface {
	List(ctx context.Context, f ProductFilter) ([]Product, int, error)
	Get(ctx context.Context, id int64) (*Product, error)
	Create(ctx context.Context, p *Product) (int64, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
}

type ProductFilter struct {
	Query    string
	VendorID int64
	Active   *bool
	Page     int
	PageSize int
}

type productsStore struct {
	db *sql.DB
}

func NewProductsStore(db *sql.DB) ProductsStore {
	return &productsStore{db: db}
}

const productColumns = `p.id, p.vendor_id, v.name, p.name, p.model, p.description, p.active, p.created_at, p.updated_at`

func productFilterClause(f ProductFilter) (string, []any) {
	var conds []string
	var args []any
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		conds = append(conds, `(LOWER(p.name) LIKE ? OR LOWER(p.model) LIKE ?)`)
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	if f.VendorID > 0 {
		conds = append(conds, `p.vendor_id=?`)
		args = append(args, f.VendorID)
	}
	if f.Active != nil {
		conds = append(conds, `p.active=?`)
		args = append(args, boolToInt(*f.Active))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *productsStore) List(ctx context.Context, f ProductFilter) ([]Product, int, error) {
	where, args := productFilterClause(f)
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM products p JOIN vendors v ON v.id=p.vendor_id`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := pageToLimitOffset(f.Page, f.PageSize)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products p JOIN vendors v ON v.id=p.vendor_id`+where+` ORDER BY v.name, p.name LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []Product
	for rows.Next() {
		var p Product
		var active int
		if err := rows.Scan(&p.ID, &p.VendorID, &p.VendorName, &p.Name, &p.Model, &p.Description, &active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		p.Active = active == 1
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

func (s *productsStore) Get(ctx context.Context, id int64) (*Product, error) {
	var p Product
	var active int
	err := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products p JOIN vendors v ON v.id=p.vendor_id WHERE p.id=?`, id).
		Scan(&p.ID, &p.VendorID, &p.VendorName, &p.Name, &p.Model, &p.Description, &active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.Active = active == 1
	return &p, nil
}

func (s *productsStore) Create(ctx context.Context, p *Product) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products(vendor_id, name, model, description, active, created_at, updated_at) VALUES(?,?,?,?,?,?,?)`,
		p.VendorID, strings.TrimSpace(p.Name), strings.TrimSpace(p.Model), p.Description, boolToInt(p.Active), now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return id, nil
}

func (s *productsStore) Update(ctx context.Context, p *Product) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET vendor_id=?, name=?, model=?, description=?, active=?, updated_at=? WHERE id=?`,
		p.VendorID, strings.TrimSpace(p.Name), strings.TrimSpace(p.Model), p.Description, boolToInt(p.Active), time.Now().UTC(), p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *productsStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
