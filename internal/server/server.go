package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server owns the HTTP listener. Construct with New, run with Start,
// stop with Shutdown.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
}

// New wires the routes and middleware for the given configuration.
func New(cfg Config, logger zerolog.Logger) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(securityHeadersMiddleware)

	r.Post("/register", cfg.Auth.registerHandler())
	r.Post("/login", cfg.Auth.loginHandler())
	r.Post("/logout", cfg.Auth.logoutHandler())
	r.Method(http.MethodPost, "/upload", cfg.uploadHandler())
	r.Get("/uploads/{name}", cfg.serveUploadHandler())

	r.Get("/health", cfg.healthHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	mountUI(r)

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{httpServer: s, handler: r}, nil
}

// Handler exposes the routed handler for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
