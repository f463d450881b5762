package routegroups

import (
	"github.com/go-chi/chi/v5"

	"github.com/shenulal/telematics-io-manager/api/handlers"
)

func RegisterUsers(apiRouter chi.Router, g Guards, users *handlers.UsersHandler) {
	apiRouter.Route("/users", func(r chi.Router) {
		r.MethodFunc("GET", "/", g.AuthPerm("users.read", users.List))
		r.MethodFunc("POST", "/", g.AuthPerm("users.create", users.Create))
		r.MethodFunc("GET", "/{id:[0-9]+}", g.AuthPerm("users.read", users.Get))
		r.MethodFunc("PUT", "/{id:[0-9]+}", g.AuthPerm("users.update", users.Update))
		r.MethodFunc("DELETE", "/{id:[0-9]+}", g.AuthPerm("users.delete", users.Delete))
	})
}

func RegisterRoles(apiRouter chi.Router, g Guards, roles *handlers.RolesHandler) {
	apiRouter.Route("/roles", func(r chi.Router) {
		r.MethodFunc("GET", "/", g.AuthPerm("roles.read", roles.List))
		r.MethodFunc("GET", "/permissions", g.AuthPerm("roles.read", roles.Permissions))
		r.MethodFunc("POST", "/", g.AuthPerm("roles.create", roles.Create))
		r.MethodFunc("GET", "/{id:[0-9]+}", g.AuthPerm("roles.read", roles.Get))
		r.MethodFunc("PUT", "/{id:[0-9]+}", g.AuthPerm("roles.update", roles.Update))
		r.MethodFunc("DELETE", "/{id:[0-9]+}", g.AuthPerm("roles.delete", roles.Delete))
	})
}

func RegisterAuditLogs(apiRouter chi.Router, g Guards, audits *handlers.AuditLogsHandler) {
	apiRouter.MethodFunc("GET", "/audit-logs", g.AuthAdminOrPerm("audit_logs.read", audits.List))
}

func RegisterDashboard(apiRouter chi.Router, g Guards, dash *handlers.DashboardHandler) {
	apiRouter.MethodFunc("GET", "/dashboard/stats", g.AuthAdminOrPerm("dashboard.view", dash.Stats))
}
