package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shenulal/telematics-io-manager/config"
	"github.com/shenulal/telematics-io-manager/core/audit"
	"github.com/shenulal/telematics-io-manager/core/auth"
	"github.com/shenulal/telematics-io-manager/core/store"
	"github.com/shenulal/telematics-io-manager/core/utils"
)

type Server struct {
	cfg        *config.AppConfig
	router     chi.Router
	httpServer *http.Server
	logger     *utils.Logger
	db         *sql.DB

	users     store.UsersStore
	roles     store.RolesStore
	perms     store.PermissionsStore
	sessions  store.SessionStore
	audits    store.AuditStore
	vendors   store.VendorsStore
	products  store.ProductsStore
	ios       store.IOUniversalStore
	mappings  store.IOMappingsStore
	dashboard store.DashboardStore

	tokens         *auth.TokenIssuer
	sessionManager *auth.SessionManager
	housekeeper    *auth.SessionHousekeeper
	recorder       *audit.Recorder
	metrics        *httpMetrics
	loginLimiter   *requestLimiter
}

func NewServer(cfg *config.AppConfig, db *sql.DB, logger *utils.Logger) (*Server, error) {
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	sessions := store.NewSessionsStore(db)
	audits := store.NewAuditStore(db)

	s := &Server{
		cfg:            cfg,
		router:         chi.NewRouter(),
		logger:         logger,
		db:             db,
		users:          store.NewUsersStore(db),
		roles:          store.NewRolesStore(db),
		perms:          store.NewPermissionsStore(db),
		sessions:       sessions,
		audits:         audits,
		vendors:        store.NewVendorsStore(db),
		products:       store.NewProductsStore(db),
		ios:            store.NewIOUniversalStore(db),
		mappings:       store.NewIOMappingsStore(db),
		dashboard:      store.NewDashboardStore(db),
		tokens:         tokens,
		sessionManager: auth.NewSessionManager(sessions, cfg.RefreshTTL, logger.Named("sessions")),
		recorder:       audit.NewRecorder(audits, logger.Named("audit")),
		metrics:        newHTTPMetrics(),
		loginLimiter:   newLimiter(5, time.Minute),
	}
	if cfg.Housekeeping.Enabled {
		s.housekeeper = auth.NewSessionHousekeeper(sessions, cfg.Housekeeping.Schedule, logger.Named("housekeeping"), s.observeSweep)
	}
	s.registerRoutes()
	return s, nil
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	if s.housekeeper != nil {
		if err := s.housekeeper.Start(); err != nil {
			return err
		}
	}
	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	if s.cfg.TLSEnabled {
		return s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.housekeeper != nil {
		s.housekeeper.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
