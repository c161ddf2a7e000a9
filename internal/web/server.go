// Package web provides the HTTP server for running transformation pipelines
// over uploaded CSV files.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/tabula/internal/config"
	"github.com/JonMunkholm/tabula/internal/core"
	mw "github.com/JonMunkholm/tabula/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/zoobzio/clockz"
)

// Server is the HTTP front end of a core.Service.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	clock   clockz.Clock

	limiter          *rateLimiter
	transformLimiter *rateLimiter
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerClock sets the clock used by the rate limiters and request log.
func WithServerClock(c clockz.Clock) ServerOption {
	return func(s *Server) { s.clock = c }
}

// NewServer creates a Server with middleware and routes installed.
func NewServer(service *core.Service, cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
		clock:   clockz.RealClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.Rate.Enabled {
		s.limiter = newRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute, s.clock)
		s.transformLimiter = newRateLimiter(cfg.Rate.TransformLimit, time.Minute, s.clock)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger(s.clock))
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(s.securityHeaders)
	if s.limiter != nil {
		s.router.Use(s.limiter.middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/available-transformers/", s.handleAvailableTransformers)

	// Transform runs: authenticated and separately rate limited.
	s.router.Group(func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.Security))
		if s.transformLimiter != nil {
			r.Use(s.transformLimiter.middleware)
		}
		r.Post("/transform/", s.handleTransform)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/transformers", s.handleListTransformers)
		r.Get("/status", s.handleStatus)
		r.Get("/runs", s.handleListRuns)
		r.With(mw.APIKeyAuth(s.cfg.Security)).Post("/runs/{runID}/cancel", s.handleCancelRun)
	})
}

// Start listens on the configured address and blocks until shutdown.
// It returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the chi router, for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

const contentSecurityPolicy = "default-src 'none'; style-src 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'"

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			h.Set("Content-Security-Policy", contentSecurityPolicy)
		}
		next.ServeHTTP(w, r)
	})
}
