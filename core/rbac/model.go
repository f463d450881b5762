package rbac

import (
	"sort"
	"strings"
)

type Permission string

type Role struct {
	Name        string
	Description string
	Permissions []Permission
}

// Module and Action split a "module.action" permission name.
func (p Permission) Module() string {
	name := string(p)
	if i := strings.Index(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

func (p Permission) Action() string {
	name := string(p)
	if i := strings.Index(name, "."); i > 0 && i+1 < len(name) {
		return name[i+1:]
	}
	return ""
}

var permissions = []Permission{
	"dashboard.view",
	"users.read", "users.create", "users.update", "users.delete",
	"roles.read", "roles.create", "roles.update", "roles.delete",
	"vendors.read", "vendors.create", "vendors.update", "vendors.delete", "vendors.export", "vendors.import",
	"products.read", "products.create", "products.update", "products.delete", "products.export",
	"io_universal.read", "io_universal.create", "io_universal.update", "io_universal.delete", "io_universal.export", "io_universal.import",
	"io_mappings.read", "io_mappings.create", "io_mappings.update", "io_mappings.delete", "io_mappings.export",
	"audit_logs.read",
}

var knownPermissionSet = buildPermissionSet()

func buildPermissionSet() map[Permission]struct{} {
	out := make(map[Permission]struct{}, len(permissions))
	for _, p := range permissions {
		out[p] = struct{}{}
	}
	return out
}

func AllPermissions() []Permission {
	out := make([]Permission, len(permissions))
	copy(out, permissions)
	return out
}

func IsKnownPermission(p Permission) bool {
	_, ok := knownPermissionSet[p]
	return ok
}

// adminModules is the administrative permission family: holding any permission
// in one of these modules grants the coarse admin shortcut used by the
// audit-log and dashboard-stats endpoints.
var adminModules = map[string]struct{}{
	"users": {},
	"roles": {},
}

func IsAdminFamily(p Permission) bool {
	if !IsKnownPermission(p) {
		return false
	}
	_, ok := adminModules[p.Module()]
	return ok
}

func NormalizePermissionNames(in []string) ([]string, []string) {
	validSet := map[string]struct{}{}
	invalidSet := map[string]struct{}{}
	for _, raw := range in {
		p := strings.ToLower(strings.TrimSpace(raw))
		if p == "" {
			continue
		}
		if IsKnownPermission(Permission(p)) {
			validSet[p] = struct{}{}
			continue
		}
		invalidSet[p] = struct{}{}
	}
	valid := make([]string, 0, len(validSet))
	for p := range validSet {
		valid = append(valid, p)
	}
	sort.Strings(valid)
	invalid := make([]string, 0, len(invalidSet))
	for p := range invalidSet {
		invalid = append(invalid, p)
	}
	sort.Strings(invalid)
	return valid, invalid
}

var roles = []Role{
	{Name: "admin", Description: "Full administrative access", Permissions: permissions},
	{Name: "manager", Description: "Catalog management without user administration", Permissions: []Permission{
		"dashboard.view",
		"vendors.read", "vendors.create", "vendors.update", "vendors.delete", "vendors.export", "vendors.import",
		"products.read", "products.create", "products.update", "products.delete", "products.export",
		"io_universal.read", "io_universal.create", "io_universal.update", "io_universal.delete", "io_universal.export", "io_universal.import",
		"io_mappings.read", "io_mappings.create", "io_mappings.update", "io_mappings.delete", "io_mappings.export",
	}},
	{Name: "operator", Description: "Mapping maintenance over an existing catalog", Permissions: []Permission{
		"dashboard.view",
		"vendors.read", "products.read", "io_universal.read",
		"io_mappings.read", "io_mappings.create", "io_mappings.update", "io_mappings.export",
	}},
	{Name: "viewer", Description: "Read-only catalog access", Permissions: []Permission{
		"dashboard.view", "vendors.read", "products.read", "io_universal.read", "io_mappings.read",
	}},
	{Name: "auditor", Description: "Audit trail review", Permissions: []Permission{
		"audit_logs.read",
	}},
}

func DefaultRoles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}
