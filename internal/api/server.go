package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bobyard/sui-indexer/internal/api/handler"
	"github.com/bobyard/sui-indexer/internal/indexer"
	"go.uber.org/zap"
)

// Status responses wait on a node round trip.
const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 15 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Deps are the sources the status API reports on.
type Deps struct {
	Cursor  indexer.CursorReader
	Head    indexer.HeadSource
	Streams handler.StreamStats // optional
}

// Server serves the indexer status API.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer builds the status API over deps, listening on addr.
func NewServer(deps Deps, logger *zap.Logger, addr, adminToken string) *Server {
	h := handler.NewHandler(deps.Cursor, deps.Head, deps.Streams, logger, adminToken)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           h.NewRouter(),
			ReadHeaderTimeout: readTimeout,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the router, for serving without a listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then drains open requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("status API listening", zap.String("addr", ln.Addr().String()))

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("status API: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down status API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
