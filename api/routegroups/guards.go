package routegroups

import "net/http"

// Guards bundles the server's auth and permission middleware so route
// registration stays declarative.
type Guards struct {
	WithAuth             func(http.HandlerFunc) http.HandlerFunc
	RequirePermission    func(string) func(http.HandlerFunc) http.HandlerFunc
	RequireAnyPermission func(...string) func(http.HandlerFunc) http.HandlerFunc
	RequireAdminOrPerm   func(string) func(http.HandlerFunc) http.HandlerFunc
}

func (g Guards) Auth(handler http.HandlerFunc) http.HandlerFunc {
	return g.WithAuth(handler)
}

func (g Guards) AuthPerm(perm string, handler http.HandlerFunc) http.HandlerFunc {
	return g.WithAuth(g.RequirePermission(perm)(handler))
}

func (g Guards) AuthAnyPerm(perms []string, handler http.HandlerFunc) http.HandlerFunc {
	return g.WithAuth(g.RequireAnyPermission(perms...)(handler))
}

func (g Guards) AuthAdminOrPerm(perm string, handler http.HandlerFunc) http.HandlerFunc {
	return g.WithAuth(g.RequireAdminOrPerm(perm)(handler))
}
