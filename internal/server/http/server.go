// Package http serves the equipment catalog over JSON/HTTP.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/equiplookup/internal/logging"
	"github.com/dmitrijs2005/equiplookup/internal/server/auth"
	"github.com/dmitrijs2005/equiplookup/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Catalog is the business API behind the routes.
type Catalog interface {
	List(ctx context.Context) ([]models.Equipment, error)
	Search(ctx context.Context, pattern string) ([]models.Equipment, error)
	Create(ctx context.Context, in models.Equipment) (*models.Equipment, error)
	BulkCreate(ctx context.Context, batch []models.Equipment) ([]models.Equipment, error)
}

// Authenticator resolves bearer tokens and user roles.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

type Server struct {
	address     string
	servicePath string
	catalog     Catalog
	auth        Authenticator
	logger      logging.Logger
}

func NewServer(addr, servicePath string, catalog Catalog, authn Authenticator, l logging.Logger) *Server {
	return &Server{
		address:     addr,
		servicePath: servicePath,
		catalog:     catalog,
		auth:        authn,
		logger:      l.With("module", "http_server"),
	}
}

// Router builds the route tree. Catalog routes live under the service path;
// /metrics sits at the root.
func (s *Server) Router() http.Handler {
	registerMetrics()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogContext)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Route(s.servicePath, func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.With(s.authMiddleware).Get("/equipment", s.handleList)
		r.With(s.authMiddleware).Get("/equipment/search", s.handleSearch)
		r.With(s.authMiddleware, s.requireAdmin).Post("/equipment", s.handleCreate)
		r.With(s.authMiddleware, s.requireAdmin).Post("/equipment/bulk", s.handleBulk)
	})

	return r
}

// Run serves until ctx is done, then shuts down within five seconds.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address, "service_path", s.servicePath)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
