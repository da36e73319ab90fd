package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"weeklypanel/internal/config"
	apperrors "weeklypanel/internal/errors"
	"weeklypanel/internal/infrastructure"
	"weeklypanel/internal/middleware"
)

// NewRouter builds the browse router. tel may be nil, in which case
// /metrics and request tracing are left out.
func NewRouter(source ResultSource, tel *infrastructure.Telemetry, logger *slog.Logger) chi.Router {
	errorHandler := apperrors.NewErrorHandler(logger)
	results := NewResultHandler(source, logger, errorHandler)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if tel != nil {
		r.Use(middleware.Tracing(tel))
	}
	r.Use(middleware.StructuredLogger(logger))
	r.Use(errorHandler.Recoverer)
	r.Use(middleware.SecurityHeaders)

	r.NotFound(errorHandler.NotFound)
	r.Get("/healthz", results.Health)
	if tel != nil {
		r.Method(http.MethodGet, "/metrics", tel.MetricsHandler())
	}
	r.Mount("/api", results.Routes())
	return r
}

const defaultShutdownTimeout = 10 * time.Second

// Server runs the browse router until its context ends
type Server struct {
	cfg    config.ServerConfig
	srv    *http.Server
	logger *slog.Logger
}

// NewServer wraps handler in an http.Server configured from cfg
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		cfg: cfg,
		srv: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger.With(slog.String("component", "http_server")),
	}
}

// Run listens on the configured address and serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return apperrors.NewNetworkError("listen on "+s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is done, then shuts down gracefully within
// the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "server_started", slog.String("addr", ln.Addr().String()))
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return apperrors.NewNetworkError("http server failed", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return apperrors.NewNetworkError("http server shutdown", err)
	}
	s.logger.InfoContext(ctx, "server_stopped")
	return nil
}
