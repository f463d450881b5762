package routegroups

import (
	"github.com/go-chi/chi/v5"

	"github.com/shenulal/telematics-io-manager/api/handlers"
)

func RegisterVendors(apiRouter chi.Router, g Guards, vendors *handlers.VendorsHandler) {
	apiRouter.Route("/vendors", func(r chi.Router) {
		r.MethodFunc("GET", "/", g.AuthPerm("vendors.read", vendors.List))
		r.MethodFunc("GET", "/export", g.AuthPerm("vendors.export", vendors.ExportCSV))
		r.MethodFunc("POST", "/import", g.AuthPerm("vendors.import", vendors.ImportCSV))
		r.MethodFunc("POST", "/", g.AuthPerm("vendors.create", vendors.Create))
		r.MethodFunc("GET", "/{id:[0-9]+}", g.AuthPerm("vendors.read", vendors.Get))
		r.MethodFunc("PUT", "/{id:[0-9]+}", g.AuthPerm("vendors.update", vendors.Update))
		r.MethodFunc("DELETE", "/{id:[0-9]+}", g.AuthPerm("vendors.delete", vendors.Delete))
	})
}

func RegisterProducts(apiRouter chi.Router, g Guards, products *handlers.ProductsHandler) {
	apiRouter.Route("/products", func(r chi.Router) {
		r.MethodFunc("GET", "/", g.AuthPerm("products.read", products.List))
		r.MethodFunc("GET", "/export", g.AuthPerm("products.export", products.ExportCSV))
		r.MethodFunc("POST", "/", g.AuthPerm("products.create", products.Create))
		r.MethodFunc("GET", "/{id:[0-9]+}", g.AuthPerm("products.read", products.Get))
		r.MethodFunc("PUT", "/{id:[0-9]+}", g.AuthPerm("products.update", products.Update))
		r.MethodFunc("DELETE", "/{id:[0-9]+}", g.AuthPerm("products.delete", products.Delete))
	})
}

func RegisterIOUniversal(apiRouter chi.Router, g Guards, ios *handlers.IOUniversalHandler) {
	apiRouter.Route("/io-universal", func(r chi.Router) {
		r.MethodFunc("GET", "/", g.AuthPerm("io_universal.read", ios.List))
		r.MethodFunc("GET", "/categories", g.AuthPerm("io_universal.read", ios.Categories))
		r.MethodFunc("GET", "/export", g.AuthPerm("io_universal.export", ios.ExportCSV))
		r.MethodFunc("POST", "/import", g.AuthPerm("io_universal.import", ios.ImportCSV))
		r.MethodFunc("POST", "/", g.AuthPerm("io_universal.create", ios.Create))
		r.MethodFunc("GET", "/{id:[0-9]+}", g.AuthPerm("io_universal.read", ios.Get))
		r.MethodFunc("PUT", "/{id:[0-9]+}", g.AuthPerm("io_universal.update", ios.Update))
		r.MethodFunc("DELETE", "/{id:[0-9]+}", g.AuthPerm("io_universal.delete", ios.Delete))
	})
}

func RegisterIOMappings(apiRouter chi.Router, g Guards, mappings *handlers.IOMappingsHandler) {
	apiRouter.Route("/io-mappings", func(r chi.Router) {
		r.MethodFunc("GET", "/", g.AuthPerm("io_mappings.read", mappings.List))
		r.MethodFunc("GET", "/tree", g.AuthPerm("io_mappings.read", mappings.Tree))
		r.MethodFunc("GET", "/export", g.AuthPerm("io_mappings.export", mappings.ExportCSV))
		r.MethodFunc("POST", "/", g.AuthPerm("io_mappings.create", mappings.Create))
		r.MethodFunc("GET", "/{id:[0-9]+}", g.AuthPerm("io_mappings.read", mappings.Get))
		r.MethodFunc("PUT", "/{id:[0-9]+}", g.AuthPerm("io_mappings.update", mappings.Update))
		r.MethodFunc("DELETE", "/{id:[0-9]+}", g.AuthPerm("io_mappings.delete", mappings.Delete))
	})
}
