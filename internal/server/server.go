package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/n0madic/go-tongue/internal/config"
	"github.com/n0madic/go-tongue/internal/dispatch"
	"github.com/n0madic/go-tongue/internal/metrics"
)

// Server is the main HTTP server.
type Server struct {
	Config     *config.ServerConfig
	Dispatcher *dispatch.Dispatcher
	httpServer *http.Server
	handler    http.Handler
}

// New creates a new server with all routes registered.
func New(cfg *config.ServerConfig, d *dispatch.Dispatcher) *Server {
	metrics.Register()

	s := &Server{
		Config:     cfg,
		Dispatcher: d,
	}

	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	// Any other method; CORS preflight is answered by corsMiddleware.
	mux.HandleFunc("/api/analyze", s.handleMethodNotAllowed)

	s.handler = corsMiddleware(requestIDMiddleware(authMiddleware(cfg, verboseMiddleware(cfg, debugMiddleware(cfg, mux)))))

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: writeTimeout(cfg, d.Pool().Len()),
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// writeTimeout covers the worst case of one analysis: every attempt hitting
// the upstream timeout plus the linear backoff between attempts.
func writeTimeout(cfg *config.ServerConfig, poolSize int) time.Duration {
	attempts := time.Duration(dispatch.MaxAttempts(poolSize))
	backoff := cfg.BackoffBase * attempts * (attempts - 1) / 2
	return cfg.UpstreamTimeout*attempts + backoff + time.Minute
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts the server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
