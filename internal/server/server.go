package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackzampolin/pantry/internal/api"
	"github.com/jackzampolin/pantry/internal/config"
	"github.com/jackzampolin/pantry/internal/home"
	"github.com/jackzampolin/pantry/internal/library"
	"github.com/jackzampolin/pantry/internal/server/endpoints"
	"github.com/jackzampolin/pantry/internal/svcctx"
)

// Server is the development cookbook Resource API.
// It owns an in-memory library whose OCR jobs are cancelled on shutdown.
type Server struct {
	httpServer *http.Server
	library    *library.Library
	configMgr  *config.Manager
	logger     *slog.Logger

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu       sync.RWMutex
	running  bool
	services *svcctx.Services
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// PageDelay is slept before each page of an OCR job.
	PageDelay time.Duration
	// Fixtures is a YAML file of scripted OCR results. Empty uses the built-in set.
	Fixtures string
	// Extractor overrides Fixtures when set.
	Extractor library.Extractor
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Home is the pantry home directory
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	extractor := cfg.Extractor
	if extractor == nil && cfg.Fixtures != "" {
		fixtures, err := library.LoadFixtures(cfg.Fixtures)
		if err != nil {
			return nil, fmt.Errorf("failed to load OCR fixtures: %w", err)
		}
		extractor = fixtures
	}

	lib, err := library.New(library.Config{
		Extractor: extractor,
		PageDelay: cfg.PageDelay,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create library: %w", err)
	}

	// Page delay follows the config file while the server runs
	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			lib.SetPageDelay(c.DevServer.PageDelay)
			cfg.Logger.Info("page delay reloaded from config", "page_delay", c.DevServer.PageDelay)
		})
	}

	s := &Server{
		library:   lib,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
		services: &svcctx.Services{
			Library: lib,
			Config:  cfg.ConfigManager,
			Logger:  cfg.Logger,
			Home:    cfg.Home,
		},
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown stops the HTTP server, then cancels running OCR jobs.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.Close()

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

// Close detaches and closes the library. Requests that need it get 503
// afterwards. It is safe to call more than once.
func (s *Server) Close() {
	s.mu.Lock()
	services := s.services
	s.services = nil
	s.mu.Unlock()

	if services != nil && services.Library != nil {
		s.logger.Info("stopping OCR jobs")
		services.Library.Close()
	}
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Library returns the cookbook library.
func (s *Server) Library() *library.Library {
	return s.library
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the HTTP handler, for serving without Start.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) currentServices() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if services := s.currentServices(); services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the library is attached.
// Returns 503 Service Unavailable once the server has been closed.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svcctx.LibraryFrom(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
