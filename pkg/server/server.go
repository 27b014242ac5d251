// Package server exposes Saturn's ops HTTP surface: health, metrics,
// quota status, and a remote admission endpoint.
//
// The quota core never imports this package; the server is a collaborator
// layered on top of the gate.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"calibra-hq/saturn/pkg/config"
	"calibra-hq/saturn/pkg/gate"
)

// Server serves the ops HTTP endpoints.
type Server struct {
	config *config.ServerConfig
	gate   *gate.Gate
	logger *slog.Logger

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.Mutex
	isRunning    bool
}

// New creates an ops server over the given gate.
func New(cfg *config.ServerConfig, g *gate.Gate, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: cfg,
		gate:   g,
		logger: logger.With("component", "server"),
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.routes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting ops server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		s.isRunning = false
		s.mu.Unlock()

		if !running || s.httpServer == nil {
			return
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down ops server", "timeout", s.config.ShutdownTimeout.String())
		shutdownErr = s.httpServer.Shutdown(shutdownCtx)
	})

	return shutdownErr
}

// routes builds the request mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/quotas", s.handleQuotaStatus)
	mux.HandleFunc("POST /v1/admit", s.handleAdmit)

	return mux
}
