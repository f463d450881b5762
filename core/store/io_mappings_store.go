package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

type IOMappingsStore interface {
	List(ctx context.Context, f IOMappingFilter) ([]IOMapping, int, error)
	Get(ctx context.Context, id int64) (*IOMapping, error)
	Create(ctx context.Context, m *IOMapping) (int64, error)
	Update(ctx context.Context, m *IOMapping) error
	Delete(ctx context.Context, id int64) error
	Tree(ctx context.Context, vendorID, productID int64) ([]MappingVendorNode, error)
}

type IOMappingFilter struct {
	Query     string
	VendorID  int64
	ProductID int64
	Page      int
	PageSize  int
}

// MappingVendorNode groups mappings vendor first, then product.
type MappingVendorNode struct {
	VendorID   int64                `json:"vendor_id"`
	VendorName string               `json:"vendor_name"`
	Products   []MappingProductNode `json:"products"`
}

type MappingProductNode struct {
	ProductID   int64       `json:"product_id"`
	ProductName string      `json:"product_name"`
	Mappings    []IOMapping `json:"mappings"`
}

type ioMappingsStore struct {
	db *sql.DB
}

func NewIOMappingsStore(db *sql.DB) IOMappingsStore {
	return &ioMappingsStore{db: db}
}

const ioMappingColumns = `m.id, m.vendor_id, v.name, m.product_id, p.name, m.io_universal_id, io.name, io.io_id,
	m.register_address, m.register_type, m.scale, m.offset_value, m.notes, m.created_at, m.updated_at`

const ioMappingFrom = ` FROM io_mappings m
	JOIN vendors v ON v.id=m.vendor_id
	JOIN products p ON p.id=m.product_id
	JOIN io_universal io ON io.id=m.io_universal_id`

func ioMappingFilterClause(f IOMappingFilter) (string, []any) {
	var conds []string
	var args []any
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		conds = append(conds, `(LOWER(io.name) LIKE ? OR LOWER(m.register_type) LIKE ? OR LOWER(m.notes) LIKE ?)`)
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}
	if f.VendorID > 0 {
		conds = append(conds, `m.vendor_id=?`)
		args = append(args, f.VendorID)
	}
	if f.ProductID > 0 {
		conds = append(conds, `m.product_id=?`)
		args = append(args, f.ProductID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanIOMapping(sc interface{ Scan(dest ...any) error }) (IOMapping, error) {
	var m IOMapping
	err := sc.Scan(&m.ID, &m.VendorID, &m.VendorName, &m.ProductID, &m.ProductName, &m.IOUniversalID, &m.IOName, &m.IOID,
		&m.RegisterAddress, &m.RegisterType, &m.Scale, &m.OffsetValue, &m.Notes, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (s *ioMappingsStore) List(ctx context.Context, f IOMappingFilter) ([]IOMapping, int, error) {
	where, args := ioMappingFilterClause(f)
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1)`+ioMappingFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset := pageToLimitOffset(f.Page, f.PageSize)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ioMappingColumns+ioMappingFrom+where+` ORDER BY v.name, p.name, io.io_id LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []IOMapping
	for rows.Next() {
		m, err := scanIOMapping(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

func (s *ioMappingsStore) Get(ctx context.Context, id int64) (*IOMapping, error) {
	m, err := scanIOMapping(s.db.QueryRowContext(ctx, `SELECT `+ioMappingColumns+ioMappingFrom+` WHERE m.id=?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *ioMappingsStore) Create(ctx context.Context, m *IOMapping) (int64, error) {
	now := time.Now().UTC()
	if m.Scale == 0 {
		m.Scale = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO io_mappings(vendor_id, product_id, io_universal_id, register_address, register_type, scale, offset_value, notes, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		m.VendorID, m.ProductID, m.IOUniversalID, m.RegisterAddress, m.RegisterType, m.Scale, m.OffsetValue, m.Notes, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	m.ID = id
	m.CreatedAt = now
	m.UpdatedAt = now
	return id, nil
}

func (s *ioMappingsStore) Update(ctx context.Context, m *IOMapping) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE io_mappings SET vendor_id=?, product_id=?, io_universal_id=?, register_address=?, register_type=?, scale=?, offset_value=?, notes=?, updated_at=? WHERE id=?`,
		m.VendorID, m.ProductID, m.IOUniversalID, m.RegisterAddress, m.RegisterType, m.Scale, m.OffsetValue, m.Notes, time.Now().UTC(), m.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *ioMappingsStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM io_mappings WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Tree returns all mappings matching the optional vendor/product filters,
// grouped vendor first, then product. Ordering follows the List query so the
// groups come out stable.
func (s *ioMappingsStore) Tree(ctx context.Context, vendorID, productID int64) ([]MappingVendorNode, error) {
	where, args := ioMappingFilterClause(IOMappingFilter{VendorID: vendorID, ProductID: productID})
	rows, err := s.db.QueryContext(ctx, `SELECT `+ioMappingColumns+ioMappingFrom+where+` ORDER BY v.name, p.name, io.io_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tree []MappingVendorNode
	for rows.Next() {
		m, err := scanIOMapping(rows)
		if err != nil {
			return nil, err
		}
		if len(tree) == 0 || tree[len(tree)-1].VendorID != m.VendorID {
			tree = append(tree, MappingVendorNode{VendorID: m.VendorID, VendorName: m.VendorName})
		}
		vn := &tree[len(tree)-1]
		if len(vn.Products) == 0 || vn.Products[len(vn.Products)-1].ProductID != m.ProductID {
			vn.Products = append(vn.Products, MappingProductNode{ProductID: m.ProductID, ProductName: m.ProductName})
		}
		pn := &vn.Products[len(vn.Products)-1]
		pn.Mappings = append(pn.Mappings, m)
	}
	return tree, rows.Err()
}
