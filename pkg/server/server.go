package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/server/middleware"
)

// Options configures a Server.
type Options struct {
	// Config is the server section of the engine configuration.
	Config config.ServerConfig

	// Webhook handles events posted to Config.WebhookPath.
	Webhook http.Handler

	// Metrics, when non-nil, is served on MetricsPath.
	Metrics http.Handler

	// MetricsPath is the metrics route.
	MetricsPath string

	// Logger receives request logs.
	Logger *slog.Logger
}

// Server is the webhook HTTP server.
type Server struct {
	opts       Options
	httpServer *http.Server

	mu        sync.Mutex
	isRunning bool
}

// New creates a server from the given options.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{opts: opts}
}

// Start runs the server and blocks until the context is cancelled or
// the listener fails. On cancellation the server shuts down gracefully
// within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Addr:         s.opts.Config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.Config.ReadTimeout,
		WriteTimeout: s.opts.Config.WriteTimeout,
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("starting server", "address", s.opts.Config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown stops the server gracefully, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return nil
	}
	s.isRunning = false

	s.opts.Logger.Info("shutting down server", "timeout", s.opts.Config.ShutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, s.opts.Config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Handler returns the routed handler with the middleware chain
// applied: recovery outermost, then request ids, then logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	if s.opts.Webhook != nil {
		mux.Handle(s.opts.Config.WebhookPath, s.opts.Webhook)
	}
	if s.opts.Metrics != nil && s.opts.MetricsPath != "" {
		mux.Handle(s.opts.MetricsPath, s.opts.Metrics)
	}

	var handler http.Handler = mux
	handler = middleware.Logging(s.opts.Logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(s.opts.Logger)(handler)
	return handler
}
