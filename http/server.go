// Package http serves the prediction form and JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server HTTP server
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig server settings
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// DefaultServerConfig default server settings
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		MaxBodyBytes:   64 << 10,
		AllowedOrigins: []string{"*"},
	}
}

// Deps are the collaborators the routes need. Feed and Metrics may be nil.
type Deps struct {
	Handlers *Handlers
	Limiter  *RateLimiter
	Feed     http.Handler
	Metrics  http.Handler
	Logger   *zap.Logger
}

// NewHandler builds the routed, middleware-wrapped handler.
func NewHandler(config ServerConfig, deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	api := http.NewServeMux()
	RegisterHandlers(api, deps.Handlers, deps.Limiter)
	if deps.Metrics != nil {
		api.Handle("GET /metrics", deps.Metrics)
	}

	bounded := Chain(
		TimeoutMiddleware(config.Timeout),
		RequestSizeMiddleware(config.MaxBodyBytes),
	)(api)

	// websocket upgrades must bypass the timeout handler
	root := http.NewServeMux()
	if deps.Feed != nil {
		root.Handle("GET /api/ws/predictions", deps.Feed)
	}
	root.Handle("/", bounded)

	return Chain(
		RecoveryMiddleware(logger),
		LoggerMiddleware(logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
	)(root)
}

// NewServer creates the HTTP server
func NewServer(config ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      NewHandler(config, deps),
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout + 5*time.Second,
			IdleTimeout:  120 * time.Second,
		},
		config: config,
		logger: logger,
	}
}

// Start blocks serving until Stop
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
