// Package server provides the reference admin API HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/adminstate/internal/auth"
	"github.com/vyrodovalexey/adminstate/internal/config"
	"github.com/vyrodovalexey/adminstate/internal/handler"
	"github.com/vyrodovalexey/adminstate/internal/middleware"
	"github.com/vyrodovalexey/adminstate/internal/store"
)

// PersonPermission is required on every /person route.
const PersonPermission = "person"

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	config     *config.Config
	logger     *zap.Logger
	tokens     *auth.TokenIssuer
}

// New creates a new Server instance. users verifies login credentials and is
// also accepted as HTTP Basic authentication on protected routes.
func New(cfg *config.Config, logger *zap.Logger, personStore store.Store, users *auth.BasicAuthenticator) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router: mux.NewRouter(),
		config: cfg,
		logger: logger,
		tokens: auth.NewTokenIssuer(cfg.TokenTTL),
	}

	s.setupMiddleware(users)
	s.setupRoutes(personStore, users)
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures the middleware chain. The first one applied is
// the outermost.
func (s *Server) setupMiddleware(users *auth.BasicAuthenticator) {
	s.router.Use(mux.MiddlewareFunc(middleware.Observe(s.logger, s.config.MetricsEnabled)))
	s.router.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.CORS("*")))
	s.router.Use(mux.MiddlewareFunc(middleware.Auth(auth.Any(s.tokens, users), s.logger)))
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes(personStore store.Store, users *auth.BasicAuthenticator) {
	s.router.HandleFunc("/health", handler.HealthCheck).Methods(http.MethodGet)

	handler.NewAuthHandler(users, s.tokens, s.logger).RegisterRoutes(s.router)

	persons := s.router.NewRoute().Subrouter()
	persons.Use(mux.MiddlewareFunc(middleware.RequirePermission(PersonPermission, s.logger)))
	handler.NewPersonHandler(personStore, s.logger).RegisterRoutes(persons)

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	// Preflight on any path. Methods(OPTIONS) would turn unknown paths into 405.
	s.router.MatcherFunc(func(r *http.Request, _ *mux.RouteMatch) bool {
		return r.Method == http.MethodOptions
	}).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// setupHTTPServer configures the HTTP server.
func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
		zap.Duration("token_ttl", s.config.TokenTTL),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Tokens returns the issuer of bearer tokens.
func (s *Server) Tokens() *auth.TokenIssuer {
	return s.tokens
}
