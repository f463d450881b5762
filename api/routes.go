package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shenulal/telematics-io-manager/api/handlers"
	"github.com/shenulal/telematics-io-manager/api/routegroups"
	"github.com/shenulal/telematics-io-manager/core/rbac"
)

func (s *Server) registerRoutes() {
	s.router.Use(s.recoverMiddleware)
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.clientIPMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.securityHeadersMiddleware)

	authH := handlers.NewAuthHandler(s.cfg, s.users, s.perms, s.tokens, s.sessionManager, s.recorder, s.logger)
	usersH := handlers.NewUsersHandler(s.cfg, s.users, s.sessionManager, s.recorder, s.logger)
	rolesH := handlers.NewRolesHandler(s.roles, s.perms, s.recorder, s.logger)
	vendorsH := handlers.NewVendorsHandler(s.vendors, s.recorder, s.logger)
	productsH := handlers.NewProductsHandler(s.products, s.vendors, s.recorder, s.logger)
	iosH := handlers.NewIOUniversalHandler(s.ios, s.recorder, s.logger)
	mappingsH := handlers.NewIOMappingsHandler(s.mappings, s.products, s.ios, s.recorder, s.logger)
	auditsH := handlers.NewAuditLogsHandler(s.audits)
	dashH := handlers.NewDashboardHandler(s.dashboard)

	guards := routegroups.Guards{
		WithAuth: s.withAuth,
		RequirePermission: func(perm string) func(http.HandlerFunc) http.HandlerFunc {
			return s.requirePermission(rbac.Permission(perm))
		},
		RequireAnyPermission: func(perms ...string) func(http.HandlerFunc) http.HandlerFunc {
			converted := make([]rbac.Permission, 0, len(perms))
			for _, p := range perms {
				converted = append(converted, rbac.Permission(p))
			}
			return s.requireAnyPermission(converted...)
		},
		RequireAdminOrPerm: func(perm string) func(http.HandlerFunc) http.HandlerFunc {
			return s.requireAdminOrPermission(rbac.Permission(perm))
		},
	}

	s.router.Route("/api", func(apiRouter chi.Router) {
		apiRouter.Use(s.jsonMiddleware)

		apiRouter.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.rateLimitLogin(authH.Login))
			r.Post("/refresh", authH.Refresh)
			r.Post("/logout", s.withAuth(authH.Logout))
			r.Get("/me", s.withAuth(authH.Me))
			r.Post("/change-password", s.withAuth(authH.ChangePassword))
		})

		routegroups.RegisterUsers(apiRouter, guards, usersH)
		routegroups.RegisterRoles(apiRouter, guards, rolesH)
		routegroups.RegisterAuditLogs(apiRouter, guards, auditsH)
		routegroups.RegisterDashboard(apiRouter, guards, dashH)
		routegroups.RegisterVendors(apiRouter, guards, vendorsH)
		routegroups.RegisterProducts(apiRouter, guards, productsH)
		routegroups.RegisterIOUniversal(apiRouter, guards, iosH)
		routegroups.RegisterIOMappings(apiRouter, guards, mappingsH)
	})

	s.registerObservabilityRoutes()
}
