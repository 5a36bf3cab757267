// Package server exposes the daemon's control surface over HTTP: lifecycle
// transitions, source toggles, targeted harvests and statistics.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lorekeep/lorekeep/internal/daemon"
)

// Config holds the HTTP server settings.
type Config struct {
	Host string
	Port int
}

// Server is the HTTP control server for a running daemon.
type Server struct {
	daemon *daemon.Daemon
	config Config
	server *http.Server
}

// NewServer creates a control server for the given daemon.
func NewServer(d *daemon.Daemon, cfg Config) *Server {
	return &Server{
		daemon: d,
		config: cfg,
	}
}

// Router builds the route tree. Exposed separately so tests can drive the
// handlers without binding a socket.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/v1/daemon/start", s.handleStart)
	r.Post("/api/v1/daemon/pause", s.handlePause)
	r.Post("/api/v1/daemon/resume", s.handleResume)
	r.Post("/api/v1/daemon/stop", s.handleStop)
	r.Get("/api/v1/stats", s.handleStats)
	r.Post("/api/v1/harvest", s.handleHarvest)
	r.Post("/api/v1/sources/{name}/enable", s.handleEnableSource)
	r.Post("/api/v1/sources/{name}/disable", s.handleDisableSource)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("control server listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
