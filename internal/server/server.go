// Package server exposes the ops API: health, status, positions, orders,
// metrics, a bot stop control and a WebSocket event stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/orderbot/internal/domain"
	"github.com/alanyoungcy/orderbot/internal/server/handler"
	"github.com/alanyoungcy/orderbot/internal/server/middleware"
	"github.com/alanyoungcy/orderbot/internal/server/ws"
)

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 10 * time.Second

// Config holds the HTTP server configuration.
type Config struct {
	Port int
	// APIKey guards the control routes; when empty they are not registered.
	APIKey string
}

// Deps are the read models and handlers the server routes to. Orders,
// Metrics and Hub are optional.
type Deps struct {
	Bots    *handler.Bots
	Info    handler.Info
	Orders  domain.OrderLister
	Metrics http.Handler
	Hub     *ws.Hub
}

// Server is the ops HTTP + WebSocket server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers every route and builds the middleware chain.
func NewServer(cfg Config, deps Deps, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handler.NewHealthHandler(deps.Bots, logger).HealthCheck)
	mux.HandleFunc("GET /api/status", handler.NewStatusHandler(deps.Bots, deps.Info).GetStatus)
	mux.HandleFunc("GET /api/positions", handler.NewPositionHandler(deps.Bots).ListPositions)
	mux.HandleFunc("GET /api/orders", handler.NewOrderHandler(deps.Orders, logger).ListOrders)

	if cfg.APIKey != "" {
		stop := http.HandlerFunc(handler.NewBotHandler(deps.Bots, logger).StopBot)
		mux.Handle("POST /api/bots/{name}/stop", middleware.Auth(cfg.APIKey)(stop))
	}
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}
	if deps.Hub != nil {
		mux.HandleFunc("GET /ws", deps.Hub.HandleWS)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           middleware.Logging(logger)(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger}
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}
