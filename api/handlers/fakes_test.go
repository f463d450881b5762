package handlers

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shenulal/telematics-io-manager/core/store"
)

// errDuplicate matches what store.IsUniqueViolation recognizes.
var errDuplicate = errors.New("UNIQUE constraint failed")

type fakeUsersStore struct {
	users  map[int64]*store.User
	roles  map[int64][]string
	nextID int64
}

func newFakeUsersStore() *fakeUsersStore {
	return &fakeUsersStore{users: map[int64]*store.User{}, roles: map[int64][]string{}}
}

func (f *fakeUsersStore) add(u *store.User, roles []string) *store.User {
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	f.users[u.ID] = u
	f.roles[u.ID] = append([]string{}, roles...)
	return u
}

func (f *fakeUsersStore) FindByUsername(ctx context.Context, username string) (*store.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeUsersStore) Get(ctx context.Context, userID int64) (*store.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUsersStore) Create(ctx context.Context, user *store.User, roles []string) (int64, error) {
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return 0, errDuplicate
		}
	}
	return f.add(user, roles).ID, nil
}

func (f *fakeUsersStore) List(ctx context.Context, filter store.UserFilter) ([]store.UserWithRoles, int, error) {
	var out []store.UserWithRoles
	for _, u := range f.users {
		out = append(out, store.UserWithRoles{User: *u, Roles: f.roles[u.ID]})
	}
	return out, len(out), nil
}

func (f *fakeUsersStore) Update(ctx context.Context, user *store.User, roles []string) error {
	if _, ok := f.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *user
	f.users[user.ID] = &clone
	if roles != nil {
		f.roles[user.ID] = append([]string{}, roles...)
	}
	return nil
}

func (f *fakeUsersStore) UpdatePassword(ctx context.Context, userID int64, hash, salt string) error {
	u, ok := f.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	u.Salt = salt
	return nil
}

func (f *fakeUsersStore) SetLastLogin(ctx context.Context, userID int64, at time.Time) error {
	if u, ok := f.users[userID]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (f *fakeUsersStore) Delete(ctx context.Context, userID int64) error {
	if _, ok := f.users[userID]; !ok {
		return sql.ErrNoRows
	}
	delete(f.users, userID)
	delete(f.roles, userID)
	return nil
}

func (f *fakeUsersStore) RolesForUser(ctx context.Context, userID int64) ([]string, error) {
	return append([]string{}, f.roles[userID]...), nil
}

type fakeSessionsStore struct {
	records []*store.SessionRecord
	nextID  int64
}

func (f *fakeSessionsStore) Create(ctx context.Context, rec *store.SessionRecord) error {
	f.nextID++
	rec.ID = f.nextID
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeSessionsStore) GetActiveByToken(ctx context.Context, token string) (*store.SessionRecord, error) {
	now := time.Now().UTC()
	for _, rec := range f.records {
		if rec.Token == token && rec.RevokedAt == nil && rec.ExpiresAt.After(now) {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeSessionsStore) FindByToken(ctx context.Context, token string) (*store.SessionRecord, error) {
	for _, rec := range f.records {
		if rec.Token == token {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeSessionsStore) ListByUser(ctx context.Context, userID int64) ([]store.SessionRecord, error) {
	var out []store.SessionRecord
	for _, rec := range f.records {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeSessionsStore) Revoke(ctx context.Context, token string, by string) error {
	for _, rec := range f.records {
		if rec.Token == token && rec.RevokedAt == nil {
			now := time.Now().UTC()
			rec.RevokedAt = &now
			rec.RevokedBy = by
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeSessionsStore) RevokeAllForUser(ctx context.Context, userID int64, by string) error {
	now := time.Now().UTC()
	for _, rec := range f.records {
		if rec.UserID == userID && rec.RevokedAt == nil {
			rec.RevokedAt = &now
			rec.RevokedBy = by
		}
	}
	return nil
}

func (f *fakeSessionsStore) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for _, rec := range f.records {
		if rec.RevokedAt == nil && !rec.ExpiresAt.After(now) {
			rec.RevokedAt = &now
			rec.RevokedBy = "system"
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionsStore) activeCount(userID int64) int {
	now := time.Now().UTC()
	n := 0
	for _, rec := range f.records {
		if rec.UserID == userID && rec.RevokedAt == nil && rec.ExpiresAt.After(now) {
			n++
		}
	}
	return n
}

type fakePermsStore struct {
	byUser map[int64][]string
}

func (f *fakePermsStore) List(ctx context.Context) ([]store.PermissionRecord, error) {
	return nil, nil
}

func (f *fakePermsStore) ResolveForUser(ctx context.Context, userID int64) ([]string, error) {
	return append([]string{}, f.byUser[userID]...), nil
}

func (f *fakePermsStore) EnsureCatalog(ctx context.Context, perms []store.PermissionRecord) error {
	return nil
}

type fakeVendorsStore struct {
	vendors []*store.Vendor
	nextID  int64
}

func (f *fakeVendorsStore) List(ctx context.Context, filter store.VendorFilter) ([]store.Vendor, int, error) {
	var all []store.Vendor
	for _, v := range f.vendors {
		all = append(all, *v)
	}
	total := len(all)
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (f *fakeVendorsStore) Get(ctx context.Context, id int64) (*store.Vendor, error) {
	for _, v := range f.vendors {
		if v.ID == id {
			clone := *v
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeVendorsStore) FindByCode(ctx context.Context, code string) (*store.Vendor, error) {
	for _, v := range f.vendors {
		if v.Code == strings.ToUpper(code) {
			clone := *v
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeVendorsStore) Create(ctx context.Context, v *store.Vendor) (int64, error) {
	for _, existing := range f.vendors {
		if existing.Name == v.Name || existing.Code == v.Code {
			return 0, errDuplicate
		}
	}
	f.nextID++
	v.ID = f.nextID
	v.CreatedAt = time.Now().UTC()
	v.UpdatedAt = v.CreatedAt
	clone := *v
	f.vendors = append(f.vendors, &clone)
	return v.ID, nil
}

func (f *fakeVendorsStore) Update(ctx context.Context, v *store.Vendor) error {
	for i, existing := range f.vendors {
		if existing.ID == v.ID {
			clone := *v
			f.vendors[i] = &clone
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeVendorsStore) Delete(ctx context.Context, id int64) error {
	for i, existing := range f.vendors {
		if existing.ID == id {
			f.vendors = append(f.vendors[:i], f.vendors[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeAuditStore struct {
	rows []*store.AuditRecord
}

func (f *fakeAuditStore) Insert(ctx context.Context, rec *store.AuditRecord) error {
	clone := *rec
	f.rows = append(f.rows, &clone)
	return nil
}

func (f *fakeAuditStore) List(ctx context.Context, filter store.AuditFilter) ([]store.AuditRecord, int, error) {
	var out []store.AuditRecord
	for i := len(f.rows) - 1; i >= 0; i-- {
		out = append(out, *f.rows[i])
	}
	return out, len(out), nil
}

func (f *fakeAuditStore) last() *store.AuditRecord {
	if len(f.rows) == 0 {
		return nil
	}
	return f.rows[len(f.rows)-1]
}

type fakeRolesStore struct {
	roles  []*store.Role
	nextID int64
}

func (f *fakeRolesStore) add(role *store.Role) *store.Role {
	f.nextID++
	role.ID = f.nextID
	role.CreatedAt = time.Now().UTC()
	role.UpdatedAt = role.CreatedAt
	clone := *role
	f.roles = append(f.roles, &clone)
	return role
}

func (f *fakeRolesStore) List(ctx context.Context) ([]store.Role, error) {
	var out []store.Role
	for _, r := range f.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRolesStore) FindByName(ctx context.Context, name string) (*store.Role, error) {
	for _, r := range f.roles {
		if r.Name == strings.ToLower(name) {
			clone := *r
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRolesStore) FindByID(ctx context.Context, id int64) (*store.Role, error) {
	for _, r := range f.roles {
		if r.ID == id {
			clone := *r
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRolesStore) Create(ctx context.Context, role *store.Role) (int64, error) {
	for _, existing := range f.roles {
		if existing.Name == strings.ToLower(role.Name) {
			return 0, errDuplicate
		}
	}
	role.Name = strings.ToLower(role.Name)
	f.add(role)
	return role.ID, nil
}

// Update mirrors the sqlite store: a nil permission slice leaves the
// stored set untouched.
func (f *fakeRolesStore) Update(ctx context.Context, role *store.Role) error {
	for _, existing := range f.roles {
		if existing.ID != role.ID {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(role.Name))
		if existing.IsSystem && name != "" && name != existing.Name {
			return store.ErrSystemRole
		}
		if name != "" {
			existing.Name = name
		}
		existing.Description = role.Description
		if role.Permissions != nil {
			existing.Permissions = append([]string(nil), role.Permissions...)
		}
		existing.UpdatedAt = time.Now().UTC()
		return nil
	}
	return sql.ErrNoRows
}

func (f *fakeRolesStore) Delete(ctx context.Context, id int64) error {
	for i, existing := range f.roles {
		if existing.ID == id {
			if existing.IsSystem {
				return store.ErrSystemRole
			}
			f.roles = append(f.roles[:i], f.roles[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeRolesStore) EnsureBuiltIn(ctx context.Context, roles []store.Role) error {
	for i := range roles {
		role := roles[i]
		if existing, _ := f.FindByName(ctx, role.Name); existing == nil {
			f.add(&role)
		}
	}
	return nil
}
