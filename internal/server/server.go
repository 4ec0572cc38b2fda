// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"review-funnel/internal/account"
	"review-funnel/internal/common/config"
	"review-funnel/internal/common/errors"
	"review-funnel/internal/common/logger"
	"review-funnel/internal/common/observability"
	"review-funnel/internal/qr"
	"review-funnel/internal/review"
	"review-funnel/internal/shop"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the funnel's HTTP surface: the public landing-page API and
// the session-guarded admin API.
type Server struct {
	cfg        *config.Config
	logger     logger.Logger
	errHandler *errors.Handler
	obs        *observability.Observability

	resolver *shop.Resolver
	store    *shop.Store
	index    *shop.Index
	importer *shop.Importer
	relay    *review.Relay
	accounts *account.Service
	sessions *account.Sessions
	poller   *qr.Poller

	httpServer *http.Server
}

type Deps struct {
	Config   *config.Config
	Logger   logger.Logger
	Obs      *observability.Observability
	Resolver *shop.Resolver
	Store    *shop.Store
	Index    *shop.Index
	Importer *shop.Importer
	Relay    *review.Relay
	Accounts *account.Service
	Sessions *account.Sessions
	Poller   *qr.Poller
}

func New(deps Deps) *Server {
	s := &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		errHandler: errors.NewHandler(deps.Logger),
		obs:        deps.Obs,
		resolver:   deps.Resolver,
		store:      deps.Store,
		index:      deps.Index,
		importer:   deps.Importer,
		relay:      deps.Relay,
		accounts:   deps.Accounts,
		sessions:   deps.Sessions,
		poller:     deps.Poller,
	}
	s.httpServer = &http.Server{
		Addr:         deps.Config.Server.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  config.GetDuration(deps.Config.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(deps.Config.Server.WriteTimeout),
	}
	return s
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.requestMetrics)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/shops/{shopID}", s.handleGetShop)
		r.Get("/shops/{shopID}/post-url", s.handlePostURL)
		r.Post("/reviews/generate", s.handleGenerateReview)

		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireSession)
			r.Post("/shops", s.handleCreateShop)
			r.Get("/shops", s.handleListShops)
			r.Get("/shops/search", s.handleSearchShops)
			r.Get("/shops/{userName}", s.handleAdminGetShop)
			r.Post("/shops/import", s.handleImportShops)
			r.Get("/qr", s.handleQR)
		})
	})

	return r
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"addr": s.httpServer.Addr,
	}).Info("HTTP server listening", nil)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Warn("Failed to encode response", nil)
	}
}
