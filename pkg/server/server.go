package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"phrasecraft-hq/forge/pkg/admission"
	"phrasecraft-hq/forge/pkg/config"
	"phrasecraft-hq/forge/pkg/counterstore"
	"phrasecraft-hq/forge/pkg/history"
	"phrasecraft-hq/forge/pkg/plans"
	"phrasecraft-hq/forge/pkg/quota"
	"phrasecraft-hq/forge/pkg/rewrite"
	"phrasecraft-hq/forge/pkg/server/handlers"
	"phrasecraft-hq/forge/pkg/server/middleware"
	"phrasecraft-hq/forge/pkg/telemetry/metrics"
)

// apiRequestTimeout bounds the non-streaming API routes.
const apiRequestTimeout = 10 * time.Second

// Deps are the assembled collaborators the server routes requests to.
type Deps struct {
	Admission *admission.Controller
	Engine    *rewrite.Engine
	Ledger    quota.Ledger
	Resolver  plans.Resolver
	Store     counterstore.Store
	History   history.Store

	// Metrics is optional; when nil the /metrics route is not mounted.
	Metrics *metrics.Collector
}

// Server is the HTTP front of the rewrite service.
type Server struct {
	config       *config.ServerConfig
	metricsCfg   *config.MetricsConfig
	deps         Deps
	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server from configuration and collaborators.
func NewServer(cfg *config.ServerConfig, metricsCfg *config.MetricsConfig, deps Deps) *Server {
	return &Server{
		config:     cfg,
		metricsCfg: metricsCfg,
		deps:       deps,
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled, a
// termination signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully drains in-flight requests, bounded by the
// configured shutdown timeout. Idempotent.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the listener is active.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler builds the routed handler with the full middleware chain.
// Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	rewriteHandler := handlers.NewRewriteHandler(s.deps.Admission, s.deps.Engine, slog.Default())
	quotaHandler := handlers.NewQuotaHandler(s.deps.Ledger, s.deps.Resolver, s.deps.Store, slog.Default())
	historyHandler := handlers.NewHistoryHandler(s.deps.History, slog.Default())

	// Authenticated API surface. The rewrite route streams and carries
	// its own generation deadline; the snapshot routes get a short one.
	apiTimeout := middleware.Timeout(apiRequestTimeout)
	mux.Handle("POST /v1/rewrite", middleware.Identity(rewriteHandler))
	mux.Handle("GET /v1/quota", middleware.Identity(apiTimeout(quotaHandler)))
	mux.Handle("GET /v1/rewrites", middleware.Identity(apiTimeout(http.HandlerFunc(historyHandler.List))))
	mux.Handle("GET /v1/rewrites/{id}", middleware.Identity(apiTimeout(http.HandlerFunc(historyHandler.Get))))
	mux.Handle("DELETE /v1/rewrites/{id}", middleware.Identity(apiTimeout(http.HandlerFunc(historyHandler.Delete))))

	// Unauthenticated operational surface.
	mux.Handle("GET /healthz", handlers.NewHealthHandler())
	if s.deps.Metrics != nil && s.metricsCfg != nil && s.metricsCfg.Enabled {
		mux.Handle("GET "+s.metricsCfg.Path, s.deps.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)

	return handler
}
