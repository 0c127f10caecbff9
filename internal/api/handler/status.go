package handler

import (
	"net/http"

	"github.com/bobyard/sui-indexer/internal/indexer"
	"github.com/go-jose/go-jose/v4/json"
	"go.uber.org/zap"
)

type statusResponse struct {
	indexer.Status
	PendingNotifications int   `json:"pending_notifications"`
	DroppedNotifications int64 `json:"dropped_notifications"`
}

// HandleStatus reports the durable cursor against the node head.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := indexer.CheckStatus(r.Context(), h.Cursor, h.Head)
	if err != nil {
		h.Logger.Warn("status check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	resp := statusResponse{Status: st}
	if h.Streams != nil {
		resp.PendingNotifications = h.Streams.Pending()
		resp.DroppedNotifications = h.Streams.Dropped()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleStreams returns the length of every notification stream.
func (h *Handler) HandleStreams(w http.ResponseWriter, r *http.Request) {
	if h.Streams == nil {
		writeJSON(w, http.StatusOK, map[string]int64{})
		return
	}

	lengths, err := h.Streams.StreamLengths(r.Context())
	if err != nil {
		h.Logger.Error("failed to read stream lengths", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, lengths)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
