package rbac

import "testing"

func TestAllPermissionsAreModuleDotAction(t *testing.T) {
	for _, p := range AllPermissions() {
		if p.Module() == "" || p.Action() == "" {
			t.Fatalf("permission %q is not module.action shaped", p)
		}
	}
}

func TestDefaultRolesUseKnownPermissionsOnly(t *testing.T) {
	for _, r := range DefaultRoles() {
		for _, p := range r.Permissions {
			if !IsKnownPermission(p) {
				t.Fatalf("role %q references unknown permission %q", r.Name, p)
			}
		}
	}
}

func TestIsAdminFamily(t *testing.T) {
	cases := []struct {
		perm Permission
		want bool
	}{
		{"users.read", true},
		{"users.delete", true},
		{"roles.update", true},
		{"vendors.read", false},
		{"audit_logs.read", false},
		{"users.bogus", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsAdminFamily(c.perm); got != c.want {
			t.Fatalf("IsAdminFamily(%q)=%v want %v", c.perm, got, c.want)
		}
	}
}

func TestNormalizePermissionNames(t *testing.T) {
	valid, invalid := NormalizePermissionNames([]string{" Vendors.Read ", "vendors.read", "nope.nothing", ""})
	if len(valid) != 1 || valid[0] != "vendors.read" {
		t.Fatalf("unexpected valid set: %v", valid)
	}
	if len(invalid) != 1 || invalid[0] != "nope.nothing" {
		t.Fatalf("unexpected invalid set: %v", invalid)
	}
}

func TestSetHasAdminFamily(t *testing.T) {
	if NewSet([]string{"vendors.read"}).HasAdminFamily() {
		t.Fatalf("vendors.read must not count as admin family")
	}
	if !NewSet([]string{"vendors.read", "roles.read"}).HasAdminFamily() {
		t.Fatalf("roles.read must count as admin family")
	}
	if NewSet(nil).HasAny("vendors.read") {
		t.Fatalf("empty set must not allow anything")
	}
}
