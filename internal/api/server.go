package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server wraps the Handler with an http.Server for lifecycle
// management.
type Server struct {
	server   *http.Server
	listener net.Listener
	logger   *zap.Logger
	port     int // Actual port after binding (useful when using :0)
}

// ServerConfig configures the API server.
type ServerConfig struct {
	// Addr is the address to listen on (e.g., ":8888").
	Addr string
	// Registry handles the record operations (required).
	Registry RegistryService
	// Metrics exposes /metrics and request instrumentation. Optional.
	Metrics *Metrics
	// Logger is used by handlers and middleware. Optional.
	Logger *zap.Logger
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
}

// NewServer creates a new API server. If Addr uses port 0, the OS
// assigns an available port; use Port() after creation to read it.
func NewServer(cfg ServerConfig) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := NewHandler(cfg.Registry, logger)

	mux := http.NewServeMux()
	mux.Handle("/", handler.Routes())
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	middlewares := []Middleware{
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware())
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}

	// Create listener first to get the actual port (important for :0)
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}

	port := 0
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	return &Server{
		listener: listener,
		logger:   logger,
		port:     port,
		server: &http.Server{
			Handler:           Chain(mux, middlewares...),
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
		},
	}, nil
}

// Start starts the HTTP server. It blocks until the server is stopped
// or fails.
func (s *Server) Start() error {
	s.logger.Info("starting API server", zap.String("addr", s.listener.Addr().String()))
	return s.server.Serve(s.listener)
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping API server")
	return s.server.Shutdown(ctx)
}

// Port returns the actual port the server is listening on.
func (s *Server) Port() int {
	return s.port
}
