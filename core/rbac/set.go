package rbac

// Set is the effective permission set resolved for one request.
type Set map[Permission]struct{}

func NewSet(names []string) Set {
	s := make(Set, len(names))
	for _, name := range names {
		s[Permission(name)] = struct{}{}
	}
	return s
}

func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

func (s Set) HasAny(perms ...Permission) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAdminFamily reports whether the set holds at least one permission from
// the administrative family (users.*, roles.*).
func (s Set) HasAdminFamily() bool {
	for p := range s {
		if IsAdminFamily(p) {
			return true
		}
	}
	return false
}

func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	return out
}
