package handler

import (
	"context"
	"net/http"

	"github.com/bobyard/sui-indexer/internal/indexer"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// StreamStats reports the notification backlog.
type StreamStats interface {
	Pending() int
	Dropped() int64
	StreamLengths(ctx context.Context) (map[string]int64, error)
}

// Handler holds the dependencies for API handlers
type Handler struct {
	Cursor     indexer.CursorReader
	Head       indexer.HeadSource
	Streams    StreamStats
	Logger     *zap.Logger
	AdminToken string
}

// NewHandler creates a new Handler instance. streams may be nil.
func NewHandler(cursor indexer.CursorReader, head indexer.HeadSource, streams StreamStats, logger *zap.Logger, adminToken string) *Handler {
	return &Handler{
		Cursor:     cursor,
		Head:       head,
		Streams:    streams,
		Logger:     logger,
		AdminToken: adminToken,
	}
}

// NewRouter creates and configures the HTTP router with all API routes
func (h *Handler) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", h.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/status", h.HandleStatus).Methods(http.MethodGet)

	r.HandleFunc("/api/streams", h.RequireAuth(h.HandleStreams)).Methods(http.MethodGet)

	return r
}

// RequireAuth is a middleware that validates the bearer token. An empty
// admin token disables the protected routes.
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		expected := "Bearer " + h.AdminToken

		if h.AdminToken == "" || auth != expected {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}

		next(w, r)
	}
}

// HandleHealth returns a simple health check response
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
