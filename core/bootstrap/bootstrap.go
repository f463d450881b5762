package bootstrap

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shenulal/telematics-io-manager/config"
	"github.com/shenulal/telematics-io-manager/core/auth"
	"github.com/shenulal/telematics-io-manager/core/rbac"
	"github.com/shenulal/telematics-io-manager/core/store"
	"github.com/shenulal/telematics-io-manager/core/utils"
)

// Run seeds the permission catalog, the built-in roles and the default admin
// account. It is idempotent and safe to run on every start.
func Run(ctx context.Context, db *sql.DB, cfg *config.AppConfig, logger *utils.Logger) error {
	if err := EnsurePermissionCatalog(ctx, store.NewPermissionsStore(db)); err != nil {
		return err
	}
	if err := EnsureBuiltInRoles(ctx, store.NewRolesStore(db)); err != nil {
		return err
	}
	return EnsureDefaultAdmin(ctx, store.NewUsersStore(db), cfg, logger)
}

// EnsurePermissionCatalog inserts any missing rows from the closed permission
// catalog. Existing rows are left untouched.
func EnsurePermissionCatalog(ctx context.Context, ps store.PermissionsStore) error {
	all := rbac.AllPermissions()
	recs := make([]store.PermissionRecord, 0, len(all))
	for _, p := range all {
		recs = append(recs, store.PermissionRecord{
			Name:        string(p),
			Description: describePermission(p),
			Module:      p.Module(),
			Action:      p.Action(),
		})
	}
	return ps.EnsureCatalog(ctx, recs)
}

// EnsureBuiltInRoles inserts missing system roles. Roles that already exist
// keep whatever permission set the operators gave them.
func EnsureBuiltInRoles(ctx context.Context, rs store.RolesStore) error {
	defaults := rbac.DefaultRoles()
	roles := make([]store.Role, 0, len(defaults))
	for _, r := range defaults {
		names := make([]string, 0, len(r.Permissions))
		for _, p := range r.Permissions {
			names = append(names, string(p))
		}
		roles = append(roles, store.Role{
			Name:        r.Name,
			Description: r.Description,
			IsSystem:    true,
			Permissions: names,
		})
	}
	return rs.EnsureBuiltIn(ctx, roles)
}

// EnsureDefaultAdmin creates the admin/admin account when no admin user
// exists yet. An existing admin user is never touched, so a changed password
// or membership survives restarts.
func EnsureDefaultAdmin(ctx context.Context, us store.UsersStore, cfg *config.AppConfig, logger *utils.Logger) error {
	existing, err := us.FindByUsername(ctx, "admin")
	if err != nil {
		return err
	}
	if existing != nil {
		roles, err := us.RolesForUser(ctx, existing.ID)
		if err != nil {
			return err
		}
		if hasRole(roles, "admin") {
			return nil
		}
		next := append(append([]string{}, roles...), "admin")
		if err := us.Update(ctx, existing, next); err != nil {
			return err
		}
		if logger != nil {
			logger.Printf("default admin role restored")
		}
		return nil
	}
	ph := auth.MustHashPassword("admin", cfg.Pepper)
	u := &store.User{
		Username:     "admin",
		Email:        "admin@localhost",
		FirstName:    "Default",
		LastName:     "Administrator",
		PasswordHash: ph.Hash,
		Salt:         ph.Salt,
		Active:       true,
	}
	if _, err := us.Create(ctx, u, []string{"admin"}); err != nil {
		return err
	}
	if logger != nil {
		logger.Printf("default admin created; change the password after first login")
	}
	return nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}

func describePermission(p rbac.Permission) string {
	switch p.Action() {
	case "read":
		return "View " + p.Module()
	case "create":
		return "Create " + p.Module()
	case "update":
		return "Update " + p.Module()
	case "delete":
		return "Delete " + p.Module()
	case "export":
		return "Export " + p.Module()
	case "import":
		return "Import " + p.Module()
	case "view":
		return "View " + p.Module()
	default:
		return string(p)
	}
}
