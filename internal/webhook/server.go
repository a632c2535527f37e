package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

// Config holds webhook server configuration.
type Config struct {
	Listen string

	// MetricsListen serves /metrics on a separate address when set.
	MetricsListen string
}

// Server represents the inspector HTTP server.
type Server struct {
	config  Config
	handler *Handler
	metrics *Metrics
	logger  *slog.Logger
}

// New creates a new inspector server. metrics may be nil.
func New(config Config, handler *Handler, metrics *Metrics, logger *slog.Logger) *Server {
	handler.metrics = metrics
	return &Server{
		config:  config,
		handler: handler,
		metrics: metrics,
		logger:  logger,
	}
}

// Start runs the inspector (and the metrics endpoint, if configured) until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("inspector starting", "listen", s.config.Listen)
		return s.serve(ctx, s.httpServer(), "inspector")
	})

	if s.config.MetricsListen != "" && s.metrics != nil {
		g.Go(func() error {
			s.logger.Info("metrics endpoint starting", "listen", s.config.MetricsListen)
			return s.serve(ctx, newMetricsServer(s.config.MetricsListen, s.metrics), "metrics")
		})
	}

	return g.Wait()
}

// httpServer builds the inspector's http.Server. The built-in "OPTIONS *"
// responder is disabled so those requests reach the router and get reported.
func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:                         s.config.Listen,
		Handler:                      s.setupRoutes(),
		ReadTimeout:                  10 * time.Second,
		WriteTimeout:                 10 * time.Second,
		IdleTimeout:                  60 * time.Second,
		DisableGeneralOptionsHandler: true,
	}
}

// serve runs srv until ctx is cancelled or the listener fails.
func (s *Server) serve(ctx context.Context, srv *http.Server, name string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("server shutting down", "server", name)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s server shutdown failed: %w", name, err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("%s server error: %w", name, err)
	}
}

// setupRoutes sends every path and every method to the inspection handler.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.metrics.middleware)
	r.Use(middleware.Recoverer)

	r.Handle("/", s.handler)
	r.Handle("/*", s.handler)
	// Unknown methods and non-slash targets (OPTIONS *, CONNECT host:port) land here.
	r.NotFound(s.handler.ServeHTTP)
	r.MethodNotAllowed(s.handler.ServeHTTP)

	return r
}

// loggingMiddleware logs one access line per request (no body content).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"outcome", ww.Header().Get(OutcomeHeader),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}
